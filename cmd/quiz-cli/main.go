package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"

	"elearning-quiz/internal/apiclient"
	"elearning-quiz/internal/cli"
)

func main() {
	server := flag.String("server", getEnv("QUIZ_SERVER", apiclient.DefaultServer), "quiz service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	email := flag.String("email", "", "log in with this email at startup")
	password := flag.String("password", os.Getenv("QUIZ_PASSWORD"), "password for -email")
	accessToken := flag.String("token", os.Getenv("QUIZ_ACCESS_TOKEN"), "existing access token")
	refreshToken := flag.String("refresh-token", os.Getenv("QUIZ_REFRESH_TOKEN"), "existing refresh token")
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.Run(ctx, os.Stdin, os.Stdout, cli.Config{
		ServerURL:    *server,
		HTTPTimeout:  *timeout,
		Email:        *email,
		Password:     *password,
		AccessToken:  *accessToken,
		RefreshToken: *refreshToken,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		glog.Flush()
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
