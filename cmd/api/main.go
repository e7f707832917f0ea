package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/app"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/clock"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/gateway/webpay"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/mail"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/storage/memory"
	transporthttp "github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/transport/http"
)

const defaultPort = "8080"
const defaultCORSOrigins = "http://localhost:5173,http://127.0.0.1:5173"
const defaultReturnURL = "http://localhost:5173/checkout/result"
const defaultReceiptFrom = "no-reply@luxurymotors.cl"
const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	loadEnvFile(logger)

	port := os.Getenv("PORT")
	if port == "" {
		logger.Printf("WARN: PORT not set, using default %s", defaultPort)
		port = defaultPort
	}

	corsEnv := os.Getenv("CORS_ORIGINS")
	if corsEnv == "" {
		logger.Printf("WARN: CORS_ORIGINS not set, using default local origins")
		corsEnv = defaultCORSOrigins
	}

	returnURL := os.Getenv("RETURN_URL")
	if returnURL == "" {
		logger.Printf("WARN: RETURN_URL not set, using default %s", defaultReturnURL)
		returnURL = defaultReturnURL
	}

	webpayBaseURL := os.Getenv("WEBPAY_BASE_URL")
	commerceCode := os.Getenv("WEBPAY_COMMERCE_CODE")
	webpayAPIKey := os.Getenv("WEBPAY_API_KEY")
	if webpayBaseURL == "" || commerceCode == "" || webpayAPIKey == "" {
		logger.Printf("WARN: WEBPAY_* not fully set, using Transbank integration sandbox")
		webpayBaseURL = webpay.IntegrationBaseURL
		commerceCode = webpay.IntegrationCommerceCode
		webpayAPIKey = webpay.IntegrationAPIKey
	}

	sessionTTL := 30 * time.Minute
	if raw := os.Getenv("SESSION_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			logger.Printf("WARN: invalid SESSION_TTL_MINUTES=%q, keeping %s", raw, sessionTTL)
		} else {
			sessionTTL = time.Duration(minutes) * time.Minute
		}
	}

	receiptFrom := os.Getenv("RECEIPT_FROM")
	if receiptFrom == "" {
		logger.Printf("WARN: RECEIPT_FROM not set, using default %s", defaultReceiptFrom)
		receiptFrom = defaultReceiptFrom
	}

	store := memory.NewSessionStore()
	gateway := webpay.NewClient(webpayBaseURL, commerceCode, webpayAPIKey)
	mailer := mail.NewSendGridMailer(os.Getenv("SENDGRID_API_KEY"), receiptFrom, "LuxuryMotors", logger)
	svc := app.NewTransactionService(store, gateway, mailer, clock.NewSystem(), returnURL,
		app.WithTransactionLogger(logger))
	sweeper := app.NewSweeper(store, clock.NewSystem(),
		app.WithSessionTTL(sessionTTL),
		app.WithSweepInterval(sessionTTL),
		app.WithSweeperLogger(logger))

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	mux := http.NewServeMux()
	mux.Handle("/health", transporthttp.HandleHealth(svc))
	mux.Handle("/transactions", transporthttp.HandleCreateTransaction(svc))
	mux.Handle("/transactions/", transporthttp.HandleConfirmTransaction(svc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	corsOrigins := parseCSV(corsEnv)
	handler := transporthttp.RequestLogger(transporthttp.CORS(corsOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	log.Printf("checkout api listening on :%s (session ttl %s)", port, sessionTTL)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func loadEnvFile(logger *log.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Printf("WARN: failed to locate .env: %v", err)
		return
	}
	if path == "" {
		logger.Printf("WARN: .env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	if err := parseEnvFile(logger, file); err != nil {
		logger.Printf("WARN: failed to load %s: %v", path, err)
	} else {
		logger.Printf("loaded env from %s", path)
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *log.Logger, file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
