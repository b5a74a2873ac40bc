package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/croffers/journey-backend/pkg/jwt"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		issue   bool
		refresh string
		userID  string
		email   string
		roles   []string
		expiry  time.Duration
	)
	flag.BoolVar(&issue, "token", false, "issue an access token signed with JWT_SECRET instead of generating secrets")
	flag.StringVar(&refresh, "refresh", "", "exchange a refresh token signed with JWT_REFRESH_SECRET for a new access token")
	flag.StringVar(&userID, "user", "", "user id for --token (random when empty)")
	flag.StringVar(&email, "email", "", "email claim for --token")
	flag.StringSliceVar(&roles, "roles", []string{jwt.RoleTraveler}, "roles for --token (traveler, supplier, admin)")
	flag.DurationVar(&expiry, "expiry", time.Hour, "lifetime of the issued token")
	flag.Parse()

	if issue || refresh != "" {
		issueToken(refresh, userID, email, roles, expiry)
		return
	}

	accessSecret, err := jwt.GenerateSecret(32)
	if err != nil {
		logrus.Fatalf("Failed to generate access secret: %v", err)
	}
	refreshSecret, err := jwt.GenerateSecret(32)
	if err != nil {
		logrus.Fatalf("Failed to generate refresh secret: %v", err)
	}

	fmt.Println("# Add these to your .env file. Never commit them.")
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)
}

// issueToken prints an access token and a refresh token. With a refresh token
// the user id is taken from its claims instead of --user.
func issueToken(refresh, rawUserID, email string, roles []string, expiry time.Duration) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logrus.Fatal("JWT_SECRET is not set")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		logrus.Fatal("JWT_REFRESH_SECRET is not set")
	}
	service := jwt.NewService(secret, refreshSecret, expiry, 7*24*time.Hour)

	id := uuid.New()
	switch {
	case refresh != "":
		claims, err := service.ValidateRefreshToken(refresh)
		if err != nil {
			logrus.Fatalf("invalid --refresh token: %v", err)
		}
		id = claims.UserID
	case rawUserID != "":
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			logrus.Fatalf("invalid --user %q: %v", rawUserID, err)
		}
		id = parsed
	}

	for i, role := range roles {
		roles[i] = strings.ToLower(strings.TrimSpace(role))
	}

	access, err := service.GenerateAccessToken(id, email, roles)
	if err != nil {
		logrus.Fatalf("Failed to issue token: %v", err)
	}
	refreshToken, err := service.GenerateRefreshToken(id)
	if err != nil {
		logrus.Fatalf("Failed to issue refresh token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s roles=%s expires_in=%s\n", id, strings.Join(roles, ","), expiry)
	fmt.Printf("ACCESS_TOKEN=%s\n", access)
	fmt.Printf("REFRESH_TOKEN=%s\n", refreshToken)
}
