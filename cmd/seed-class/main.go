package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/database"
	"github.com/examforge/examforge-backend/internal/logger"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"
)

func main() {
	var questionsPath string
	flag.StringVar(&questionsPath, "questions", "", "CSV file with question, options and correctAnswer columns")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// ─── Open Record Store ─────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.StoreDriver == "redis" {
		var err error
		rdb, err = database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
	}

	backend, closeBackend, err := database.OpenRecordBackend(ctx, cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer closeBackend()
	records := store.NewCSVStore(backend)

	// ─── Initialize Service ────────────────────────────────────────────
	classService := service.NewClassService(
		repository.NewClassRepository(records),
		repository.NewQuestionRepository(records, log),
		repository.NewStudentRepository(records),
		repository.NewAttemptRepository(records),
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Exam Class ===")

	fmt.Print("Enter Class Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Duration in minutes (default 60): ")
	durationStr, _ := reader.ReadString('\n')
	duration := 60
	if s := strings.TrimSpace(durationStr); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			fmt.Println("Error: Duration must be a positive number")
			return
		}
		duration = p
	}

	fmt.Print("Enter Questions per Student (0 = all): ")
	countStr, _ := reader.ReadString('\n')
	count := 0
	if s := strings.TrimSpace(countStr); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 0 {
			fmt.Println("Error: Question count must be a number")
			return
		}
		count = p
	}

	// Access key
	fmt.Print("Enter Access Key: ")
	byteKey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading access key")
		return
	}
	accessKey := string(byteKey)
	fmt.Println() // Newline after access key input
	if len(accessKey) < 4 {
		fmt.Println("Error: Access key must be at least 4 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	class, err := classService.Create(ctx, &model.CreateClassRequest{
		Name:            name,
		AccessKey:       accessKey,
		DurationMinutes: duration,
		QuestionCount:   count,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create class")
	}
	fmt.Printf("\nCreated class '%s' with ID: %s\n", class.Name, class.ID)

	if questionsPath == "" {
		fmt.Println("No -questions file given, add questions through the admin API.")
		return
	}

	f, err := os.Open(questionsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", questionsPath).Msg("Failed to open question file")
	}
	defer f.Close()

	report, err := classService.ImportQuestions(ctx, class.ID, f)
	if report != nil {
		for _, skipped := range report.Skipped {
			fmt.Printf("Skipped row %d: %s\n", skipped.Row, skipped.Message)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to import questions")
	}

	fmt.Printf("Seed completed! Imported %d questions.\n", report.Imported)
}
