package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-assistant-client/internal/bootstrap"
	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/internal/server"
	"ai-assistant-client/internal/tracer"
)

const moduleName = "DevServer"

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// 2. Logger and Tracer
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	shutdownTracer := tracer.InitTracer(cfg.Tracing, "assistant-devserver")
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, sysLogger)
	defer container.Close()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	token, err := serverutils.IssueToken(cfg.DevServer.JWTSecret, serverutils.DevUserID, 24*time.Hour)
	if err != nil {
		log.Fatalf("issue dev token: %v", err)
	}
	fmt.Printf("Dev server on http://localhost:%s\n", cfg.DevServer.Port)
	fmt.Printf("  INTRIC_API_KEY=%s\n", cfg.DevServer.APIKey)
	fmt.Printf("  INTRIC_TOKEN=%s\n", token)
	fmt.Printf("  INTRIC_ASSISTANT_ID=%s\n", memory.DefaultAssistantID)
	fmt.Printf("  info-blob group: %s\n", memory.HandbookGroupID)

	// 5. Run Server until interrupted
	go func() {
		if err := srv.Run(); err != nil {
			sysLogger.Error(moduleName, "Server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sysLogger.Info(moduleName, "Shutting down", nil)
	if err := srv.Shutdown(); err != nil {
		sysLogger.Error(moduleName, "Shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
