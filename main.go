package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/gameloader-api/api"
	gameapi "github.com/beka-birhanu/gameloader-api/api/game"
	api_i "github.com/beka-birhanu/gameloader-api/api/i"
	"github.com/beka-birhanu/gameloader-api/api/identity"
	"github.com/beka-birhanu/gameloader-api/config"
	"github.com/beka-birhanu/gameloader-api/infrastruture/clock"
	"github.com/beka-birhanu/gameloader-api/infrastruture/logger"
	"github.com/beka-birhanu/gameloader-api/infrastruture/pubsub"
	"github.com/beka-birhanu/gameloader-api/infrastruture/rallypoint"
	"github.com/beka-birhanu/gameloader-api/infrastruture/repo"
	"github.com/beka-birhanu/gameloader-api/infrastruture/token"
	"github.com/beka-birhanu/gameloader-api/infrastruture/ws"
	"github.com/beka-birhanu/gameloader-api/service"
	"github.com/beka-birhanu/gameloader-api/service/i"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// loaderEventPattern matches every broadcast path the loader publishes on.
const loaderEventPattern = "/game-loader/*"

// Global variables for dependencies
var (
	mongoClient       *mongo.Client
	redisClient       *redis.Client
	broker            *pubsub.RedisBroker
	registry          *service.ActivityRegistry
	gateway           *ws.Gateway
	rallyPointService *rallypoint.Service
	gameRepo          i.GameRepo
	userRepo          i.UserRepo
	registrar         i.Registrar
	gameLoader        i.GameLoader
	jwtTokenizer      i.Tokenizer
	loaderController  api_i.Controller
	connectController api_i.Controller
	router            *api.Router
	appLogger         general_i.Logger
)

func initMongo(ctx context.Context) {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")
}

func initRedis(ctx context.Context) {
	redisClient = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", config.Envs.RedisHost, config.Envs.RedisPort),
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")
}

func initBroker(ctx context.Context) {
	brokerLogger, err := logger.New("BROKER", config.ColorMagenta, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating broker logger: %v", err))
		os.Exit(1)
	}

	broker, err = pubsub.NewRedisBroker(redisClient, brokerLogger)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating event broker: %v", err))
		os.Exit(1)
	}

	// Bridge events from every instance onto this instance's websockets.
	go broker.Listen(ctx, loaderEventPattern, gateway.Deliver)
	appLogger.Info("Event broker initialized")
}

func initGateway() {
	gatewayLogger, err := logger.New("GATEWAY", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating gateway logger: %v", err))
		os.Exit(1)
	}

	registry = service.NewActivityRegistry()
	gateway = ws.NewGateway(registry, gatewayLogger)
	appLogger.Info("Websocket gateway initialized")
}

func initRallyPointService() {
	rallyLogger, err := logger.New("RALLY-POINT", config.ColorPurple, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating rally-point logger: %v", err))
		os.Exit(1)
	}

	servers, err := rallypoint.ParseServers(config.Envs.RallyPointServers)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Parsing rally-point servers: %v", err))
		os.Exit(1)
	}

	rallyPointService, err = rallypoint.NewService(servers, config.Envs.RallyPointSecret, rallyLogger)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating rally-point service: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Rally-point service initialized")
}

func initRepos(client *mongo.Client) {
	gameRepo = repo.NewGameRepo(client, config.Envs.DBName)
	userRepo = repo.NewUserRepo(client, config.Envs.DBName, "users")
	appLogger.Info("Repositories initialized")
}

func initRegistrar() {
	registrarLogger, err := logger.New("REGISTRAR", config.ColorBlue, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating registrar logger: %v", err))
		os.Exit(1)
	}

	registrar, err = service.NewRegistrar(gameRepo, registrarLogger)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating registrar: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Registrar initialized")
}

func initGameLoader() {
	loaderLogger, err := logger.New("GAME-LOADER", config.ColorGreen, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating loader logger: %v", err))
		os.Exit(1)
	}

	gameLoader, err = service.NewGameLoader(&service.LoaderConfig{
		Registry:        registry,
		Registrar:       registrar,
		Users:           userRepo,
		Games:           gameRepo,
		Routes:          rallyPointService,
		Publisher:       broker,
		Clock:           clock.NewSystem(),
		Logger:          loaderLogger,
		DynamicTurnRate: config.Envs.DynamicTurnRate,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating game loader: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Game loader initialized")
}

func initJWTTokenizer() {
	jwtTokenizer = token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
	appLogger.Info("JWT Tokenizer initialized")
}

func initControllers() {
	var err error
	loaderController, err = gameapi.NewLoaderController(gameLoader)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating loader controller: %v", err))
		os.Exit(1)
	}

	connectController, err = gameapi.NewConnectController(gateway, rallyPointService, rallyPointService)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating connect controller: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Controllers initialized")
}

func initRouter(t i.Tokenizer) {
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{loaderController, connectController},
		AuthorizationMiddleware: identity.Authoriz(t),
	})
	appLogger.Info("Router initialized")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure the context is always canceled

	gin.SetMode(config.Envs.GinMode)

	// Initialize dependencies
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)

	connectCtx, connectCancel := context.WithTimeout(ctx, 60*time.Second)
	defer connectCancel()
	initMongo(connectCtx)
	defer func() {
		_ = mongoClient.Disconnect(ctx)
	}()

	initRedis(connectCtx)
	defer func() {
		_ = redisClient.Close()
	}()

	initGateway()
	initBroker(ctx)
	initRallyPointService()
	initRepos(mongoClient)
	initRegistrar()
	initGameLoader()
	initJWTTokenizer()
	initControllers()
	initRouter(jwtTokenizer)

	// Run HTTP server
	if err := router.Run(); err != nil {
		appLogger.Error(fmt.Sprintf("Starting server: %v", err))
		os.Exit(1)
	}

	// Allow time for cleanup operations (TODO: use WaitGroups instead)
	time.Sleep(2 * time.Second)
}
