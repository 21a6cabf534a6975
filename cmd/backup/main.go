// Command backup dumps the research-hub database, compresses it and ships
// it to the configured S3 bucket, keeping only the newest few archives.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const keyPrefix = "db/"

type backupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	Bucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	Endpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	AccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	SecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	Region    string `envconfig:"BACKUP_S3_REGION" required:"true"`

	Keep    int           `envconfig:"KEEP_BACKUPS" default:"4"`
	Timeout time.Duration `envconfig:"BACKUP_TIMEOUT" default:"15m"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("Backup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger) error {
	_ = godotenv.Load()

	var cfg backupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	archive, err := dumpDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dump database: %w", err)
	}
	log.Info("Database dump created", zap.Int("compressed_bytes", len(archive)))

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	key := fmt.Sprintf("%s%s-%s.sql.gz", keyPrefix, cfg.DBName,
		time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(archive),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	log.Info("Backup uploaded", zap.String("bucket", cfg.Bucket), zap.String("key", key))

	return rotate(ctx, log, client, cfg)
}

// dumpDatabase runs pg_dump and gzips its output in memory.
func dumpDatabase(ctx context.Context, cfg backupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w",
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)

	dump, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(dump); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newS3Client(ctx context.Context, cfg backupConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint}, nil
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

// rotate deletes everything under the backup prefix beyond the newest
// cfg.Keep archives.
func rotate(ctx context.Context, log *zap.Logger, client *s3.Client, cfg backupConfig) error {
	var archives []struct {
		key      string
		modified time.Time
	}

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.Bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			archives = append(archives, struct {
				key      string
				modified time.Time
			}{aws.ToString(obj.Key), aws.ToTime(obj.LastModified)})
		}
	}

	if len(archives) <= cfg.Keep {
		log.Info("No rotation needed", zap.Int("archives", len(archives)))
		return nil
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].modified.After(archives[j].modified)
	})

	for _, old := range archives[cfg.Keep:] {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(old.key),
		})
		if err != nil {
			log.Warn("Failed to delete old backup", zap.String("key", old.key), zap.Error(err))
			continue
		}
		log.Info("Deleted old backup", zap.String("key", old.key))
	}
	return nil
}
