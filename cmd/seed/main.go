package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

const tokenTTL = 24 * time.Hour

var specialties = []string{
	"Cardiología",
	"Clínica Médica",
	"Dermatología",
	"Ginecología",
	"Neurología",
	"Odontología",
	"Oftalmología",
	"Pediatría",
	"Traumatología",
}

// Manifest is what the simulator reads back: who exists and how to act
// as them.
type Manifest struct {
	AdminToken  string       `json:"admin_token"`
	Specialists []Specialist `json:"specialists"`
	Patients    []Patient    `json:"patients"`
}

type Specialist struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Token     string    `json:"token"`
}

type Patient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Token string    `json:"token"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	nSpecialists := getInt("SEED_SPECIALISTS", 10)
	nPatients := getInt("SEED_PATIENTS", 50)
	output := getEnv("SEED_OUTPUT", "seed.json")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deps, err := app.Open(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	verifier := session.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	faker := gofakeit.New(0)

	admin := session.Principal{UserID: uuid.New(), Role: session.RoleAdmin, Enabled: true}
	adminToken, err := verifier.Issue(admin, tokenTTL)
	if err != nil {
		zl.Fatal("issue admin token", zap.Error(err))
	}
	manifest := Manifest{AdminToken: adminToken}

	for i := 0; i < nSpecialists; i++ {
		sp, err := seedSpecialist(ctx, deps.Schedules, verifier, admin, faker)
		if err != nil {
			zl.Fatal("seed specialist", zap.Error(err))
		}
		manifest.Specialists = append(manifest.Specialists, sp)
	}
	zl.Info("specialists seeded", zap.Int("count", nSpecialists))

	for i := 0; i < nPatients; i++ {
		p := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
		token, err := verifier.Issue(p, tokenTTL)
		if err != nil {
			zl.Fatal("issue patient token", zap.Error(err))
		}
		manifest.Patients = append(manifest.Patients, Patient{
			ID:    p.UserID,
			Name:  faker.Name(),
			Email: faker.Email(),
			Token: token,
		})
	}
	zl.Info("patients seeded", zap.Int("count", nPatients))

	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		zl.Fatal("encode manifest", zap.Error(err))
	}
	if err := os.WriteFile(output, body, 0o600); err != nil {
		zl.Fatal("write manifest", zap.String("path", output), zap.Error(err))
	}
	zl.Info("seed complete", zap.String("manifest", output))
}

// seedSpecialist gives a new specialist a weekday schedule of a few
// consecutive hours.
func seedSpecialist(ctx context.Context, svc *schedule.Service, verifier *session.TokenVerifier, admin session.Principal, faker *gofakeit.Faker) (Specialist, error) {
	specialty := specialties[faker.Number(0, len(specialties)-1)]
	p := session.Principal{UserID: uuid.New(), Role: session.RoleSpecialist, Enabled: true, Specialty: specialty}

	var days []schedule.Weekday
	for d := schedule.Monday; d <= schedule.Friday; d++ {
		if faker.Bool() {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = []schedule.Weekday{schedule.Weekday(faker.Number(int(schedule.Monday), int(schedule.Friday)))}
	}
	start := faker.Number(8, 14)
	in := schedule.Input{Weekdays: days, Start: start, End: start + faker.Number(2, 5)}

	if _, err := svc.Save(ctx, admin, p.UserID, specialty, in); err != nil {
		return Specialist{}, err
	}

	token, err := verifier.Issue(p, tokenTTL)
	if err != nil {
		return Specialist{}, err
	}
	return Specialist{ID: p.UserID, Name: faker.Name(), Specialty: specialty, Token: token}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
