package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/config"
	"github.com/wavlang/backend/pkg/googleauth"
	"github.com/wavlang/backend/pkg/helpers"
	"github.com/wavlang/backend/pkg/payments"
	"github.com/wavlang/backend/pkg/transcribe"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client
	esClient    *elasticsearch.Client

	jwtManager *helpers.JWTManager

	rabbitPub *helpers.RabbitPublisher

	stripeClient     *payments.StripeClient
	assemblyAIClient *transcribe.AssemblyAIClient
	whisperClient    *transcribe.WhisperClient
	googleClient     *googleauth.Client
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }

func SetStripe(s *payments.StripeClient)              { stripeClient = s }
func GetStripe() *payments.StripeClient               { return stripeClient }
func SetAssemblyAI(c *transcribe.AssemblyAIClient)    { assemblyAIClient = c }
func GetAssemblyAI() *transcribe.AssemblyAIClient     { return assemblyAIClient }
func SetWhisper(c *transcribe.WhisperClient)          { whisperClient = c }
func GetWhisper() *transcribe.WhisperClient           { return whisperClient }
func SetGoogleAuth(c *googleauth.Client)              { googleClient = c }
func GetGoogleAuth() *googleauth.Client               { return googleClient }
