package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"veridoc.org/internal/cert"
	"veridoc.org/internal/httpapi"
	"veridoc.org/internal/identity"
	"veridoc.org/internal/obs"
	"veridoc.org/internal/org"
	"veridoc.org/internal/store/pg"
	"veridoc.org/internal/verify"
)

var (
	version = "0.4.1"
	commit  = "dev"
)

func main() {
	// Register metrics and the JSON logger before anything emits events.
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		users    identity.UserStore
		orgStore org.Store
		certs    cert.Store
		vlog     verify.Log
		probe    httpapi.ReadyProbe
		closeDB  func() error
	)

	if dsn := os.Getenv("VERIDOC_PG_DSN"); dsn != "" {
		st, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		users = st.Users()
		orgStore = st.Orgs()
		certs = st.Certificates()
		vlog = st.VerificationLog()
		probe = httpapi.ReadyProbe{DB: st.DB()}
		closeDB = st.Close
	} else {
		// In-memory stores for local development; state is lost on restart.
		users = identity.NewInMemoryUsers()
		orgStore = org.NewInMemory()
		certs = cert.NewInMemory()
		vlog = verify.NewInMemoryLog()
	}

	superAdmins := splitList(os.Getenv("VERIDOC_SUPERADMINS"))

	orgs := org.NewDirectory(orgStore)
	resolver := identity.NewResolver(users, superAdmins)
	inviter := identity.NewInviter(users, orgs)
	admin := identity.NewAdmin(users)
	certSvc := cert.NewService(certs, &cert.StubAttestor{Network: "polygon"})
	verifier := verify.NewService(certs, vlog, orgs,
		verify.WithFirstVerification(certSvc.MarkVerified))

	api := httpapi.New(probe, version, httpapi.Services{
		Resolver: resolver,
		Inviter:  inviter,
		Admin:    admin,
		Users:    users,
		Certs:    certSvc,
		Verifier: verifier,
		Orgs:     orgs,
	})
	if base := os.Getenv("VERIDOC_BASE_URL"); base != "" {
		api.BaseURL = strings.TrimRight(base, "/")
	}

	addr := os.Getenv("VERIDOC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting veridoc-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if closeDB != nil {
		_ = closeDB()
	}
	log.Println("Stopped")
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
