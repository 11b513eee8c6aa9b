package recognizer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComprehend struct {
	input *comprehend.DetectPiiEntitiesInput
	out   *comprehend.DetectPiiEntitiesOutput
	err   error
}

func (f *fakeComprehend) DetectPiiEntities(_ context.Context, params *comprehend.DetectPiiEntitiesInput, _ ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestComprehendRecognizer_Detect(t *testing.T) {
	fake := &fakeComprehend{out: &comprehend.DetectPiiEntitiesOutput{
		Entities: []types.PiiEntity{
			{Type: types.PiiEntityTypeEmail, BeginOffset: aws.Int32(4), EndOffset: aws.Int32(11), Score: aws.Float32(0.99)},
			{Type: types.PiiEntityTypeSsn, BeginOffset: aws.Int32(16), EndOffset: aws.Int32(27), Score: aws.Float32(0.5)},
		},
	}}
	r := NewComprehendRecognizerWithClient(fake)

	entities, err := r.Detect(context.Background(), "mail a@x.com ssn 123-45-6789", "ko")
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "mail a@x.com ssn 123-45-6789", aws.ToString(fake.input.Text))
	assert.Equal(t, types.LanguageCode("ko"), fake.input.LanguageCode)

	require.Len(t, entities, 2)
	assert.Equal(t, "EMAIL", entities[0].Type)
	assert.Equal(t, 4, entities[0].BeginOffset)
	assert.Equal(t, 11, entities[0].EndOffset)
	assert.InDelta(t, 0.99, entities[0].Score, 0.0001)
	assert.Equal(t, "SSN", entities[1].Type)
}

func TestComprehendRecognizer_NoEntities(t *testing.T) {
	r := NewComprehendRecognizerWithClient(&fakeComprehend{out: &comprehend.DetectPiiEntitiesOutput{}})

	entities, err := r.Detect(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.NotNil(t, entities)
	assert.Empty(t, entities)
}

func TestComprehendRecognizer_Error(t *testing.T) {
	cause := errors.New("throttled")
	r := NewComprehendRecognizerWithClient(&fakeComprehend{err: cause})

	_, err := r.Detect(context.Background(), "hello", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}
