package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/ironsheep/menu-lens/internal/region"
)

const (
	visionBackend = "vision"
	visionScope   = "https://www.googleapis.com/auth/cloud-platform"
	textDetection = "TEXT_DETECTION"
)

// VisionOptions configures VisionRecognizer. Credentials are tried in order:
// HTTPClient, ClientEmail with PrivateKey, CredentialsFile, APIKey.
type VisionOptions struct {
	ClientEmail string

	// PrivateKey is the PEM key of the service account. Literal "\n"
	// sequences, as found in environment variables, are turned into newlines.
	PrivateKey string

	CredentialsFile string
	APIKey          string

	// Endpoint overrides the service base URL.
	Endpoint string

	// LanguageHints are BCP-47 codes passed to the service, e.g. "ja".
	LanguageHints []string

	// RequestsPerSecond limits outgoing calls. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient is used as-is, bypassing the credential options.
	HTTPClient *http.Client
}

// VisionRecognizer detects text with the Cloud Vision API.
type VisionRecognizer struct {
	svc     *vision.Service
	hints   []string
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// NewVisionRecognizer creates the Vision client. It does not contact the
// service; credential problems surface on the first Recognize call.
func NewVisionRecognizer(ctx context.Context, opts VisionOptions) (*VisionRecognizer, error) {
	clientOpts, err := visionClientOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	v := &VisionRecognizer{
		svc:    svc,
		hints:  opts.LanguageHints,
		tracer: otel.Tracer("menu-lens/ocr"),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return v, nil
}

func visionClientOptions(ctx context.Context, opts VisionOptions) ([]option.ClientOption, error) {
	var out []option.ClientOption
	if opts.Endpoint != "" {
		out = append(out, option.WithEndpoint(opts.Endpoint))
	}

	switch {
	case opts.HTTPClient != nil:
		out = append(out, option.WithHTTPClient(opts.HTTPClient))
	case opts.ClientEmail != "" && opts.PrivateKey != "":
		conf := &jwt.Config{
			Email:      opts.ClientEmail,
			PrivateKey: []byte(NormalizePrivateKey(opts.PrivateKey)),
			Scopes:     []string{visionScope},
			TokenURL:   google.JWTTokenURL,
		}
		out = append(out, option.WithHTTPClient(conf.Client(ctx)))
	case opts.CredentialsFile != "":
		out = append(out, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.APIKey != "":
		out = append(out, option.WithAPIKey(opts.APIKey))
	default:
		return nil, ErrNoCredentials
	}
	return out, nil
}

// NormalizePrivateKey replaces escaped newlines with real ones.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// Recognize sends one TEXT_DETECTION request for data.
func (v *VisionRecognizer) Recognize(ctx context.Context, data []byte) (*region.RawResponse, error) {
	ctx, span := v.tracer.Start(ctx, "vision.annotate")
	defer span.End()
	span.SetAttributes(attribute.Int("image.bytes", len(data)))

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	req := &vision.AnnotateImageRequest{
		Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []*vision.Feature{{Type: textDetection}},
	}
	if len(v.hints) > 0 {
		req.ImageContext = &vision.ImageContext{LanguageHints: v.hints}
	}

	resp, err := v.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	}).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "annotate failed")
		return nil, recognitionError(visionBackend, err)
	}

	out := fromVision(resp)
	if err := out.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "annotate returned an error")
		return nil, recognitionError(visionBackend, err)
	}
	span.SetAttributes(attribute.Int("annotations", len(out.Annotations())))
	return out, nil
}

func fromVision(resp *vision.BatchAnnotateImagesResponse) *region.RawResponse {
	out := &region.RawResponse{}
	if resp == nil {
		return out
	}
	for _, r := range resp.Responses {
		if r == nil {
			out.Responses = append(out.Responses, region.RawImageResponse{})
			continue
		}
		ir := region.RawImageResponse{
			TextAnnotations: make([]region.RawAnnotation, 0, len(r.TextAnnotations)),
		}
		if r.Error != nil {
			ir.Error = &region.RawStatus{Code: int(r.Error.Code), Message: r.Error.Message}
		}
		for _, a := range r.TextAnnotations {
			if a == nil {
				continue
			}
			ann := region.RawAnnotation{Description: a.Description, Locale: a.Locale}
			if a.BoundingPoly != nil {
				poly := &region.RawPoly{}
				for _, vx := range a.BoundingPoly.Vertices {
					if vx == nil {
						poly.Vertices = append(poly.Vertices, region.RawVertex{})
						continue
					}
					poly.Vertices = append(poly.Vertices, region.Vertex(float64(vx.X), float64(vx.Y)))
				}
				ann.BoundingPoly = poly
			}
			ir.TextAnnotations = append(ir.TextAnnotations, ann)
		}
		out.Responses = append(out.Responses, ir)
	}
	return out
}
