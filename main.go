package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/board"
	"kanban-api/notify"
	"kanban-api/storage"
)

func main() {
	debug := false
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
		debug = true
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	workspacesTable := os.Getenv("WORKSPACES_TABLE")
	columnsTable := os.Getenv("COLUMNS_TABLE")
	cardsTable := os.Getenv("CARDS_TABLE")
	usersTable := os.Getenv("USERS_TABLE")
	if connStr == "" || workspacesTable == "" || columnsTable == "" || cardsTable == "" || usersTable == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, workspacesTable, columnsTable, cardsTable, usersTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := 5 * time.Minute
	if v := os.Getenv("BOARD_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid BOARD_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL)

	eventsChannel := os.Getenv("BOARD_EVENTS_CHANNEL")
	if eventsChannel == "" {
		eventsChannel = "board-updates"
	}
	notifiers := notify.MultiNotifier{notify.NewRedisNotifier(rc, eventsChannel)}
	if queueName := os.Getenv("BOARD_EVENTS_QUEUE"); queueName != "" {
		queue, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, nil)
		if err != nil {
			log.Fatalf("events queue: %v", err)
		}
		notifiers = append(notifiers, notify.NewQueueNotifier(queue))
	}

	var auth *api.Auth
	if jwksURL := os.Getenv("AUTH_JWKS_URL"); jwksURL != "" {
		audience := os.Getenv("AUTH_AUDIENCE")
		issuer := os.Getenv("AUTH_ISSUER")
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewJWKSAuth(jwks, audience, issuer)
	} else {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			log.Fatal("missing JWT_SECRET")
		}
		auth = api.NewAuth([]byte(secret))
	}

	logger := log.New()
	engine := board.NewEngine(cached, notifiers, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if debug {
		pprof.Register(e)
	}

	api.Register(e, engine, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
