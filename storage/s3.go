package storage

import (
	"bytes"
	"context"
	"fmt"

	"render-bot/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive legt gerenderte Ausgaben zusätzlich in einem S3-kompatiblen
// Bucket ab. Das Archiv ist optional; der Render-Lauf hängt nie davon ab.
type Archive struct {
	Client *s3.Client
	Config *config.Config
}

// NewArchive erstellt das S3-Archiv aus der Konfiguration. Ist kein
// Archiv konfiguriert, kommt (nil, nil) zurück.
func NewArchive(cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ArchiveS3URL,
				SigningRegion:     cfg.ArchiveS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ArchiveS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ArchiveS3Key, cfg.ArchiveS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &Archive{Client: s3.NewFromConfig(awsCfg), Config: cfg}, nil
}

// Store lädt eine gerenderte Datei ins Archiv und gibt den Link zurück.
// Schlüssel-Layout: <manuscriptId>/<filename>.
func (a *Archive) Store(ctx context.Context, manuscriptID, filename string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s", manuscriptID, filename)
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.Config.ArchiveS3Bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", a.Config.ArchiveS3URL, a.Config.ArchiveS3Bucket, key), nil
}
