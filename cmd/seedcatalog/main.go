// seedcatalog carga categorías, productos y un cliente de demo.
// Uso: go run ./cmd/seedcatalog
package main

import (
	"errors"

	"github.com/gianlucacontedesign/terpenitos/internal/config"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type productoSeed struct {
	nombre, descripcion string
	precio, costo       string
	stock               int
	destacado           bool
}

var catalogo = map[string][]productoSeed{
	"Sustratos": {
		{"Sustrato Premium 50L", "Mezcla aireada con perlita y humus", "8500", "5200", 40, true},
		{"Fibra de Coco 25L", "Fibra lavada y tamponada", "6200", "3900", 25, false},
	},
	"Fertilizantes": {
		{"Fertilizante Floración 1L", "NPK 1-5-4 con micronutrientes", "12400", "7600", 30, true},
		{"Fertilizante Crecimiento 1L", "NPK 4-2-3", "11800", "7200", 30, false},
		{"Estimulador de Raíces 250ml", "Extracto de algas", "7300", "4100", 15, false},
	},
	"Iluminación": {
		{"Panel LED 240W", "Espectro completo regulable", "215000", "158000", 6, true},
		{"Timer Analógico", "Programable cada 15 minutos", "9800", "5600", 20, false},
	},
	"Accesorios": {
		{"Maceta Textil 20L", "Geotextil transpirable", "4200", "2300", 60, false},
		{"Medidor de pH Digital", "Calibración automática", "28900", "18500", 8, false},
	},
}

func main() {
	_ = godotenv.Load()
	infra.SetupLogger(&config.Config{LogLevel: "info"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for nombreCat, productos := range catalogo {
			cat := model.Categoria{Nombre: nombreCat, Activo: true}
			if err := tx.Where("name = ?", nombreCat).FirstOrCreate(&cat).Error; err != nil {
				return err
			}
			for _, s := range productos {
				p := model.Producto{
					Nombre:      s.nombre,
					Descripcion: s.descripcion,
					CategoriaID: cat.ID,
					Precio:      decimal.RequireFromString(s.precio),
					Costo:       decimal.RequireFromString(s.costo),
					Stock:       s.stock,
					Destacado:   s.destacado,
					Activo:      true,
				}
				if err := tx.Where("name = ? AND category_id = ?", s.nombre, cat.ID).FirstOrCreate(&p).Error; err != nil {
					return err
				}
			}
			log.Info().Str("categoria", nombreCat).Int("productos", len(productos)).Msg("categoría cargada")
		}
		return seedCliente(tx)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().Msg("catálogo de demo listo")
}

func seedCliente(tx *gorm.DB) error {
	const email, password = "cliente@terpenitos.com", "cliente123"
	err := tx.Where("email = ?", email).First(&model.Usuario{}).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	u := model.Usuario{Nombre: "Cliente Demo", Email: email, Telefono: "1122334455", PasswordHash: string(hash)}
	if err := tx.Create(&u).Error; err != nil {
		return err
	}
	log.Info().Str("email", email).Str("password", password).Msg("cliente de demo creado")
	return nil
}
