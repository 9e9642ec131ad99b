/*
Vorthd starts the vorth compile-verification HTTP server and begins
listening for new connections.

Usage:

	vorthd [flags]
	vorthd [flags] -l [[ADDRESS]:PORT]

Once started, the server listens for HTTP requests and responds to them via
a small JSON REST API: POST /login to trade a shared API key for a
short-lived JWT, then POST /compile (bearer-authenticated) to submit source
text and receive diagnostics and compile metrics back.

The flags are:

	-v, --version
		Give the current version of vorthd and then exit.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, defaults to the value of environment variable
		VORTH_LISTEN_ADDRESS, and if that is not given, to localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWTs. If not given, defaults to
		the value of environment variable VORTH_TOKEN_SECRET. If neither is
		given, a random secret is generated; all tokens issued become
		invalid as soon as the server shuts down.

	-k, --api-key API_KEY
		The plaintext shared API key clients must present to POST /login.
		If not given, defaults to the value of environment variable
		VORTH_API_KEY. If neither is given, a random key is generated and
		printed once at startup, since there is no other way for an
		operator to learn it.
*/
package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/vorth/internal/version"
	"github.com/dekarrin/vorth/server"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvListen = "VORTH_LISTEN_ADDRESS"
	EnvSecret = "VORTH_TOKEN_SECRET"
	EnvAPIKey = "VORTH_API_KEY"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of vorthd and then exit.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for signing JWTs.")
	flagAPIKey  = pflag.StringP("api-key", "k", "", "Shared API key clients must present to log in.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	addr := "localhost"
	port := 8080
	listenAddr := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr != "" {
		bindParts := strings.SplitN(listenAddr, ":", 2)
		if len(bindParts) != 2 {
			fmt.Fprintf(os.Stderr, "Listen address is not in ADDRESS:PORT or :PORT format.\nDo -h for help.\n")
			os.Exit(1)
		}
		addr = bindParts[0]
		var err error
		port, err = strconv.Atoi(bindParts[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%q is not a valid port number.\nDo -h for help.\n", bindParts[1])
			os.Exit(1)
		}
	}

	tokSecret := []byte(os.Getenv(EnvSecret))
	if pflag.Lookup("secret").Changed {
		tokSecret = []byte(*flagSecret)
	}
	if len(tokSecret) == 0 {
		tokSecret = make([]byte, 64)
		if _, err := rand.Read(tokSecret); err != nil {
			fmt.Fprintf(os.Stderr, "Could not generate token secret: %s\n", err)
			os.Exit(1)
		}
		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
	}
	for len(tokSecret) < server.MinSecretSize {
		tokSecret = append(tokSecret, tokSecret...)
	}
	if len(tokSecret) > server.MaxSecretSize {
		tokSecret = tokSecret[:server.MaxSecretSize]
	}

	apiKey := os.Getenv(EnvAPIKey)
	if pflag.Lookup("api-key").Changed {
		apiKey = *flagAPIKey
	}
	if apiKey == "" {
		keyBytes := make([]byte, 24)
		if _, err := rand.Read(keyBytes); err != nil {
			fmt.Fprintf(os.Stderr, "Could not generate API key: %s\n", err)
			os.Exit(1)
		}
		apiKey = fmt.Sprintf("%x", keyBytes)
		log.Printf("WARN  No API key configured; generated one for this run: %s", apiKey)
	}

	keyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not hash API key: %s\n", err)
		os.Exit(1)
	}

	cfg := server.Config{TokenSecret: tokSecret, APIKeyHash: keyHash}.FillDefaults()
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("FATAL could not start server: %s", err)
	}

	log.Printf("INFO  Starting vorthd %s...", version.Current)
	if err := srv.ServeForever(addr, port); err != nil {
		log.Fatalf("FATAL server exited: %s", err)
	}
}
