package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jorgedurante-source/taller-sub000/common/database"
	"github.com/jorgedurante-source/taller-sub000/internal/config"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// 用法: apply-migration [migration_file.sql]
// 不带参数时应用内置的控制面 schema（chains / chain_members / chain_users / sync_jobs）
func main() {
	sqlContent := repository.ControlSchemaSQL
	source := "embedded control schema"
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}
		sqlContent = string(b)
		source = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)
	fmt.Printf("Applying: %s\n\n", source)

	statements := splitStatements(sqlContent)
	for i, stmt := range statements {
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
		}
	}

	fmt.Println("Migration completed successfully")
}

// splitStatements 按分号切分，去掉空语句和整行注释
func splitStatements(content string) []string {
	var out []string
	for _, stmt := range strings.Split(content, ";") {
		lines := []string{}
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt = strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
