// Command seed writes the demo drivers and jobs into a fresh Firestore project.
package main

import (
	"context"
	"os"
	"time"

	"qgo-dispatch/internal/config"
	"qgo-dispatch/internal/fixtures"
	"qgo-dispatch/internal/services"
	"qgo-dispatch/internal/store/firestoredb"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	overwrite := pflag.Bool("overwrite", false, "replace documents that already exist")
	file := pflag.String("file", "", "YAML fixture file (defaults to the embedded set)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	config.SetupLogging(cfg)

	if !cfg.HasFirebase() {
		log.Fatal("❌ FIREBASE_PROJECT_ID or Firebase credentials are required to seed")
	}

	set, err := loadSet(*file)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	app, err := services.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, cfg.FirebaseCredentialsBase64)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	st, err := firestoredb.New(ctx, app)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer st.Close()

	res, err := fixtures.Seed(ctx, st, set, *overwrite)
	if err != nil {
		log.Fatalf("❌ Seeding failed after %d writes: %v", res.Written, err)
	}
	log.Printf("✅ Done: %d written, %d skipped", res.Written, res.Skipped)
}

func loadSet(path string) (fixtures.Set, error) {
	if path == "" {
		return fixtures.Default(time.Now())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fixtures.Set{}, err
	}
	return fixtures.Parse(data, time.Now())
}
