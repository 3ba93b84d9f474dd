package router

import (
	"database/sql"
	"net/http"
	"os"

	"fowl-traceability/internal/adapters/auth/authsvc"
	"fowl-traceability/internal/adapters/hooks/remote"
	mem "fowl-traceability/internal/adapters/storage/memory"
	pg "fowl-traceability/internal/adapters/storage/postgres"
	"fowl-traceability/internal/domain/certificates"
	"fowl-traceability/internal/domain/disputes"
	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/domain/lineage"
	"fowl-traceability/internal/domain/transfers"
	"fowl-traceability/internal/middleware"
	"fowl-traceability/internal/platform/logger"
	"fowl-traceability/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const defaultSigningKey = "fowl-traceability-dev-key"

type Options struct {
	AuthVerifier auth.Verifier // puede ser nil (modo dev)

	Logger logger.Logger

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))

	verifier := opts.AuthVerifier
	if verifier == nil {
		if base := os.Getenv("AUTH_BASE_URL"); base != "" {
			if v, err := authsvc.NewVerifier(authsvc.Config{BaseURL: base}); err == nil {
				verifier = v
			} else {
				log.Warn("auth verifier disabled", map[string]any{"err": err.Error()})
			}
		}
	}
	r.Use(middleware.AuthContext(verifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		fowlRepo  fowls.Repository
		trRepo    transfers.Repository
		verifRepo transfers.VerificationsRepository
		dispRepo  disputes.Repository
		certRepo  certificates.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres unavailable, falling back to memory", map[string]any{"err": err.Error()})
			}
		}
	}

	if db != nil {
		fowlRepo = pg.NewFowlsRepo(db)
		trRepo = pg.NewTransfersRepo(db)
		verifRepo = pg.NewVerificationsRepo(db)
		dispRepo = pg.NewDisputesRepo(db)
		certRepo = pg.NewCertificatesRepo(db)
	} else {
		fowlRepo = mem.NewFowlsRepo()
		trRepo = mem.NewTransfersRepo()
		verifRepo = mem.NewVerificationsRepo()
		dispRepo = mem.NewDisputesRepo()
		certRepo = mem.NewCertificatesRepo()
	}

	// Services por módulo
	fowlsSvc := fowls.NewService(fowlRepo)
	lineageSvc := lineage.NewService(fowlsSvc)
	transfersSvc := transfers.NewService(trRepo, verifRepo, fowlsSvc)
	disputesSvc := disputes.NewService(dispRepo, transfersSvc)

	signingKey := os.Getenv("CERT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = defaultSigningKey
	}
	certsSvc := certificates.NewService(certRepo, transfersSvc, fowlsSvc, lineageSvc, signingKey)

	// La emisión automática al completar se engancha acá para no
	// acoplar transfers a certificates en compile time.
	transfersSvc.SetCertificateIssuer(certsSvc)
	transfersSvc.SetLogger(log)

	if base := os.Getenv("HOOKS_BASE_URL"); base != "" {
		hc, err := remote.NewClient(remote.Config{
			BaseURL: base,
			APIKey:  os.Getenv("HOOKS_API_KEY"),
		})
		if err == nil {
			transfersSvc.SetHooks(hc, hc)
		} else {
			log.Warn("hooks client disabled", map[string]any{"err": err.Error()})
		}
	}

	// Rutas por módulo
	fowls.RegisterRoutes(r, fowlsSvc)
	lineage.RegisterRoutes(r, lineageSvc)
	transfers.RegisterRoutes(r, transfersSvc)
	disputes.RegisterRoutes(r, disputesSvc, transfersSvc)
	certificates.RegisterRoutes(r, certsSvc, transfersSvc)

	return r
}
