package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/dago-node-conformal/internal/baseline"
	"github.com/aescanero/dago-node-conformal/internal/config"
	"github.com/aescanero/dago-node-conformal/internal/queue"
	"github.com/aescanero/dago-node-conformal/internal/router"
	"github.com/aescanero/dago-node-conformal/internal/scoring"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// loadAWSConfig resolves region and credentials; static keys win over the default chain
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}

func newS3Client(awsCfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// loadBaseline fetches and decodes the baseline distribution
func loadBaseline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*baseline.Distribution, error) {
	var getter baseline.ObjectGetter
	if strings.HasPrefix(cfg.BaselineSource, "s3://") {
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		getter = newS3Client(awsCfg, cfg.AWSEndpointURL)
	}

	src, err := baseline.ParseLocation(cfg.BaselineSource, getter)
	if err != nil {
		return nil, err
	}

	return baseline.Load(ctx, src, baseline.LoadOptions{
		Format: cfg.BaselineFormat,
		Column: cfg.BaselineColumn,
	}, logger)
}

func newScorer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*scoring.Scorer, error) {
	dist, err := loadBaseline(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}

	capability, err := scoring.NewOpenAICapability(scoring.OpenAIConfig{
		BaseURL: cfg.ScorerBaseURL,
		APIKey:  cfg.ScorerAPIKey,
		Model:   cfg.ScorerModel,
		Timeout: cfg.ScorerTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scoring capability: %w", err)
	}

	return scoring.NewScorer(capability, dist, logger), nil
}

func newRouter(cfg *config.Config, logger *zap.Logger) (*router.Router, error) {
	return router.NewRouter(router.Config{
		ConfidenceHigh:          cfg.ConfidenceHigh,
		ConfidenceLow:           cfg.ConfidenceLow,
		StandardAnnotation:      cfg.AnnotationStandard,
		LowConfidenceAnnotation: cfg.AnnotationLowConfidence,
	}, logger)
}

// newQueueClient connects the configured backend
func newQueueClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (queue.Client, error) {
	switch cfg.QueueBackend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		streams, err := queue.NewRedisStreams(ctx, redisClient, cfg.SourceQueue, cfg.ConsumerGroup, cfg.WorkerID, logger)
		if err != nil {
			_ = redisClient.Close()
			return nil, err
		}
		return streams, nil

	case config.BackendSQS:
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqs backend",
			zap.String("region", cfg.AWSRegion),
			zap.String("queue_url", cfg.SourceQueue),
		)
		return queue.NewSQSFromConfig(awsCfg, cfg.AWSEndpointURL, cfg.SourceQueue, logger), nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}
