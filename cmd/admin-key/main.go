package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/security"
)

// admin-key prints the Argon2id hash to place in MERCHDROP_ADMIN_KEY_HASH.
// With -generate it also mints the key and prints it on stderr.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "admin-key"})

	_ = godotenv.Load()

	key := flag.String("key", "", "admin key to hash (read from stdin when empty)")
	generate := flag.Bool("generate", false, "generate a random admin key instead of reading one")
	flag.Parse()

	var params config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &params); err != nil {
		logg.Error(ctx, "failed to load argon settings", err)
		os.Exit(1)
	}

	secret := strings.TrimSpace(*key)
	if *generate {
		generated, err := security.GenerateKey(32)
		if err != nil {
			logg.Error(ctx, "failed to generate admin key", err)
			os.Exit(1)
		}
		secret = generated
		fmt.Fprintln(os.Stderr, "admin key:", secret)
	}
	if secret == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logg.Error(ctx, "failed to read admin key from stdin", err)
			os.Exit(1)
		}
		secret = strings.TrimSpace(line)
	}

	hash, err := security.HashSecret(secret, params)
	if err != nil {
		logg.Error(ctx, "failed to hash admin key", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
