package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
)

// catLabel is the Rekognition label name that marks a cat.
const catLabel = "cat"

// defaultMaxLabels caps the labels returned per frame.
const defaultMaxLabels int64 = 10

// RekognitionClassifier detects cats with AWS Rekognition DetectLabels.
type RekognitionClassifier struct {
	api       rekognitioniface.RekognitionAPI
	maxLabels int64
}

// NewRekognitionClassifier creates a classifier using the default AWS
// credential chain and the provided region (empty keeps the SDK default).
func NewRekognitionClassifier(region string) (*RekognitionClassifier, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return NewRekognitionClassifierWithAPI(rekognition.New(sess)), nil
}

// NewRekognitionClassifierWithAPI wraps an existing Rekognition client.
func NewRekognitionClassifierWithAPI(api rekognitioniface.RekognitionAPI) *RekognitionClassifier {
	return &RekognitionClassifier{
		api:       api,
		maxLabels: defaultMaxLabels,
	}
}

// ImageContainsCat implements Classifier.
func (c *RekognitionClassifier) ImageContainsCat(
	ctx context.Context,
	frame []byte,
	confidenceThreshold float32,
) (bool, error) {
	if len(frame) == 0 {
		return false, ErrEmptyFrame
	}

	output, err := c.api.DetectLabelsWithContext(ctx, &rekognition.DetectLabelsInput{
		Image:         &rekognition.Image{Bytes: frame},
		MaxLabels:     aws.Int64(c.maxLabels),
		MinConfidence: aws.Float64(float64(confidenceThreshold)),
	})
	if err != nil {
		return false, fmt.Errorf("detect labels: %w", err)
	}

	for _, label := range output.Labels {
		if !strings.EqualFold(aws.StringValue(label.Name), catLabel) {
			continue
		}

		if aws.Float64Value(label.Confidence) >= float64(confidenceThreshold) {
			return true, nil
		}
	}

	return false, nil
}
