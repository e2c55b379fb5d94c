package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[I] No .env file found, relying on environment variables.")
	}

	dataSourceURL = os.Getenv("DATA_SOURCE_URL")
	if dataSourceURL == "" {
		log.Fatal("[F] DATA_SOURCE_URL is not set. Point it at the performance report spreadsheet.")
	}

	if ttlStr := os.Getenv("DATA_CACHE_TTL"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil || ttl <= 0 {
			log.Fatalf("[F] Invalid DATA_CACHE_TTL %q: must be a positive number of seconds.", ttlStr)
		}
		cacheTTL = time.Duration(ttl) * time.Second
	}

	if timeoutStr := os.Getenv("FETCH_TIMEOUT"); timeoutStr != "" {
		timeout, err := strconv.Atoi(timeoutStr)
		if err != nil || timeout <= 0 {
			log.Fatalf("[F] Invalid FETCH_TIMEOUT %q: must be a positive number of seconds.", timeoutStr)
		}
		reportClient = NewReportClient(time.Duration(timeout) * time.Second)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	if _, err := initDB(":memory:"); err != nil {
		log.Fatalf("[F] Could not initialize database: %v", err)
	}

	// The first load must succeed: serving an empty store would be
	// indistinguishable from "nothing was performed".
	if err := refreshIfStale(); err != nil {
		log.Fatalf("[F] Initial data load failed: %v", err)
	}

	go startDiscordBot(context.Background())

	http.HandleFunc("/", searchHandler)
	http.HandleFunc("/suggest", suggestHandler)
	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/download", downloadHandler)

	log.Printf("[I] Starting web server on http://localhost:%s", port)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
