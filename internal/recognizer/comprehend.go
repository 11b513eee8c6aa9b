package recognizer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ComprehendAPI is the subset of the Comprehend client the recognizer calls.
type ComprehendAPI interface {
	DetectPiiEntities(ctx context.Context, params *comprehend.DetectPiiEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error)
}

type ComprehendConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AssumeRoleARN   string
	ExternalID      string
}

// ComprehendRecognizer calls AWS Comprehend DetectPiiEntities.
type ComprehendRecognizer struct {
	client ComprehendAPI
}

// NewComprehendRecognizer builds a client from the default AWS credential
// chain. Static keys take precedence when set, and an assume-role ARN wraps
// whichever credentials were resolved.
func NewComprehendRecognizer(ctx context.Context, cfg ComprehendConfig) (*ComprehendRecognizer, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if cfg.AssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}

	return NewComprehendRecognizerWithClient(comprehend.NewFromConfig(awsCfg)), nil
}

func NewComprehendRecognizerWithClient(client ComprehendAPI) *ComprehendRecognizer {
	return &ComprehendRecognizer{client: client}
}

func (r *ComprehendRecognizer) Detect(ctx context.Context, text, language string) ([]Entity, error) {
	out, err := r.client.DetectPiiEntities(ctx, &comprehend.DetectPiiEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCode(language),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: comprehend DetectPiiEntities: %w", ErrUnavailable, err)
	}

	entities := make([]Entity, 0, len(out.Entities))
	for _, e := range out.Entities {
		entities = append(entities, Entity{
			Type:        string(e.Type),
			BeginOffset: int(aws.ToInt32(e.BeginOffset)),
			EndOffset:   int(aws.ToInt32(e.EndOffset)),
			Score:       float64(aws.ToFloat32(e.Score)),
		})
	}
	return entities, nil
}
