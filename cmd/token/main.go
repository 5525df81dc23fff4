// Command token mints an access token for local runs and operators:
//
//	JWT_SECRET=... go run ./cmd/token -sub admin-1 -role ADMIN -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "token subject (customer or admin id)")
	role := flag.String("role", string(model.RoleCustomer), "CUSTOMER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")

	tok, err := utils.NewAccessToken(secret, *sub, model.Role(strings.ToUpper(*role)), *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("mint token")
	}
	fmt.Println(tok.Token)
}
