// loadtest fires concurrent checkouts for the same product and reports how
// many orders went through. With stock N, exactly N single-unit orders must
// succeed and the product must end with stock 0. Run the server with
// RATE_LIMIT_PER_MINUTE and LOGIN_RATE_LIMIT_PER_MINUTE raised above the
// attack volume, or the limiter answers first.
//
// Uso: go run ./cmd/loadtest -base http://localhost:8000 -product 1 -users 50 -rate 100 -duration 10s
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/middleware"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type sesion struct {
	cookie string
	csrf   string
}

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	CSRFToken string `json:"csrf_token"`
	OrderID   uint   `json:"order_id"`
	Product   struct {
		Stock int `json:"stock"`
	} `json:"product"`
}

func main() {
	var (
		base      = flag.String("base", "http://localhost:8000", "Base URL del backend")
		productID = flag.Uint("product", 1, "Producto a comprar")
		users     = flag.Int("users", 50, "Clientes virtuales")
		rate      = flag.Int("rate", 100, "Requests por segundo")
		duration  = flag.Duration("duration", 10*time.Second, "Duración del ataque")
		password  = flag.String("password", "loadtest123", "Password de los clientes virtuales")
		outJSON   = flag.String("out", "loadtest_results.json", "Resumen en JSON")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	sesiones := prepararSesiones(*base, *users, *password)
	if len(sesiones) == 0 {
		log.Fatal().Msg("no se pudo preparar ninguna sesión")
	}
	stockInicial := stockDe(*base, *productID)

	body, _ := json.Marshal(map[string]any{
		"cart_items":       []map[string]any{{"product_id": *productID, "quantity": 1}},
		"shipping_address": "Av. Siempreviva 742",
		"phone":            "1122334455",
	})

	var counter uint64
	targeter := func(t *vegeta.Target) error {
		s := sesiones[(atomic.AddUint64(&counter, 1)-1)%uint64(len(sesiones))]
		t.Method = http.MethodPost
		t.URL = *base + "/api/orders"
		t.Body = body
		t.Header = http.Header{}
		t.Header.Set("Content-Type", "application/json")
		t.Header.Set("Cookie", middleware.SessionCookie+"="+s.cookie)
		t.Header.Set(middleware.CSRFHeader, s.csrf)
		return nil
	}

	var metrics vegeta.Metrics
	var ok, rechazos, otros uint64
	porStatus := map[uint16]uint64{}
	attacker := vegeta.NewAttacker()
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "checkout") {
		metrics.Add(res)
		porStatus[res.Code]++
		var env envelope
		switch {
		case json.Unmarshal(res.Body, &env) == nil && env.Success:
			ok++
		case res.Code == http.StatusBadRequest || res.Code == http.StatusConflict:
			rechazos++
		default:
			otros++
		}
	}
	metrics.Close()

	stockFinal := stockDe(*base, *productID)
	summary := map[string]any{
		"attack": map[string]any{
			"rate_rps": *rate,
			"duration": duration.String(),
			"users":    len(sesiones),
		},
		"vegeta_metrics": map[string]any{
			"requests":        metrics.Requests,
			"throughput":      metrics.Throughput,
			"latency_mean_ms": metrics.Latencies.Mean.Seconds() * 1000,
			"latency_p95_ms":  metrics.Latencies.P95.Seconds() * 1000,
			"latency_p99_ms":  metrics.Latencies.P99.Seconds() * 1000,
			"errors":          metrics.Errors,
		},
		"status_codes":  porStatus,
		"orders_ok":     ok,
		"rejected":      rechazos,
		"other":         otros,
		"stock_initial": stockInicial,
		"stock_final":   stockFinal,
		"consistent":    stockInicial < 0 || stockFinal < 0 || uint64(stockInicial-stockFinal) == ok,
		"timestamp":     time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(summary, "", "  ")
	if err := os.WriteFile(*outJSON, data, 0o644); err != nil {
		log.Warn().Err(err).Msg("no se pudo escribir el resumen")
	}
	fmt.Println(string(data))
}

// prepararSesiones registers (ignoring "already registered") and logs in one
// customer per virtual user, keeping the session cookie and CSRF token.
func prepararSesiones(base string, users int, password string) []sesion {
	out := make([]sesion, 0, users)
	baseURL, err := url.Parse(base)
	if err != nil {
		log.Fatal().Err(err).Msg("base inválida")
	}
	for i := 0; i < users; i++ {
		jar, _ := cookiejar.New(nil)
		client := &http.Client{Timeout: 5 * time.Second, Jar: jar}

		var csrf envelope
		if err := getJSON(client, base+"/api/auth/csrf", &csrf); err != nil || csrf.CSRFToken == "" {
			log.Warn().Err(err).Int("user", i).Msg("csrf")
			continue
		}
		email := fmt.Sprintf("lt_user_%d@loadtest.local", i)
		_ = postJSON(client, base+"/api/auth/register", csrf.CSRFToken, map[string]string{
			"name": fmt.Sprintf("Load Test %d", i), "email": email, "phone": "1100000000", "password": password,
		}, nil)

		var login envelope
		if err := postJSON(client, base+"/api/auth/login", csrf.CSRFToken, map[string]string{
			"email": email, "password": password,
		}, &login); err != nil || !login.Success {
			log.Warn().Err(err).Str("email", email).Str("message", login.Message).Msg("login")
			continue
		}
		for _, c := range jar.Cookies(baseURL) {
			if c.Name == middleware.SessionCookie {
				out = append(out, sesion{cookie: c.Value, csrf: csrf.CSRFToken})
			}
		}
	}
	log.Info().Int("sesiones", len(out)).Msg("clientes virtuales listos")
	return out
}

func stockDe(base string, productID uint) int {
	var env envelope
	if err := getJSON(http.DefaultClient, fmt.Sprintf("%s/api/products/detail?id=%d", base, productID), &env); err != nil || !env.Success {
		return -1
	}
	return env.Product.Stock
}

func getJSON(client *http.Client, u string, dst any) error {
	resp, err := client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dst)
}

func postJSON(client *http.Client, u, csrf string, body any, dst any) error {
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CSRFHeader, csrf)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
