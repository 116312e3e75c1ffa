package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/database"
	"github.com/stemsi/scholarship-exam/internal/logger"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
	"github.com/stemsi/scholarship-exam/internal/service"
	"github.com/stemsi/scholarship-exam/internal/validator"
	"golang.org/x/term"
)

// prompter reads answers line by line. Prompts are only printed when stdin
// is a terminal, so the command can also be fed from a file or a pipe.
type prompter struct {
	reader      *bufio.Reader
	interactive bool
}

func (p *prompter) ask(label string) string {
	if p.interactive {
		fmt.Print(label)
	}
	line, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	masterRepo := repository.NewMasterRepository(pool)
	registration := service.NewRegistrationService(repository.NewStudentRepository(pool), masterRepo, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	p := &prompter{
		reader:      bufio.NewReader(os.Stdin),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	if p.interactive {
		fmt.Println("=== Register New Student ===")
	}

	req := model.RegisterStudentRequest{
		Name:  p.ask("Enter Name: "),
		Phone: p.ask("Enter Phone: "),
		Email: p.ask("Enter Email: "),
	}
	collegeName := p.ask("Enter College: ")
	branchName := p.ask("Enter Branch: ")
	req.YearOfPassing = p.ask("Enter Year of Passing (YYYY): ")
	req.Qualification = p.ask("Enter Qualification (optional): ")

	if req.Name == "" || req.Phone == "" || req.Email == "" {
		fmt.Println("Error: name, phone and email are required")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	req.CollegeID, err = resolveMaster(ctx, p, "College", collegeName, masterRepo.CollegeByName, masterRepo.UpsertCollege)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve college")
	}
	req.BranchID, err = resolveMaster(ctx, p, "Branch", branchName, masterRepo.BranchByName, masterRepo.UpsertBranch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve branch")
	}

	student, err := registration.Register(ctx, &req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			for field, msg := range ve.Fields {
				fmt.Printf("Error: %s: %s\n", field, msg)
			}
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to register student")
	}

	fmt.Printf("\nSuccess! Student '%s' (%s) created with ID: %d\n", student.Name, student.Phone, student.ID)
}

// resolveMaster returns the id of an existing reference row, creating it
// after confirmation (always, when not interactive).
func resolveMaster(
	ctx context.Context,
	p *prompter,
	kind, name string,
	lookup func(context.Context, string) (int64, error),
	create func(context.Context, string) (int64, error),
) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%s is required", strings.ToLower(kind))
	}

	id, err := lookup(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}

	if p.interactive {
		answer := p.ask(fmt.Sprintf("%s '%s' does not exist. Create it? [y/N]: ", kind, name))
		if !strings.EqualFold(answer, "y") {
			return 0, fmt.Errorf("%s %q not found", strings.ToLower(kind), name)
		}
	}
	return create(ctx, name)
}
