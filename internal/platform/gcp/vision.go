package gcp

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// FrameSignals is the raw visual read of one coaching frame. Area and
// brightness are fractions in [0,1]; pan and tilt are degrees off camera
// axis for the largest face.
type FrameSignals struct {
	FaceCount    int
	FaceAreaFrac float64
	FaceConf     float64
	PanAngle     float64
	TiltAngle    float64
	Brightness   float64
}

type FrameAnnotator interface {
	AnnotateFrame(ctx context.Context, imageBytes []byte) (*FrameSignals, error)
	Close() error
}

// imageBatchClient is the slice of the vision API the annotator uses; the
// real ImageAnnotatorClient satisfies it.
type imageBatchClient interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

var _ imageBatchClient = (*vision.ImageAnnotatorClient)(nil)

type frameAnnotator struct {
	log    *logger.Logger
	client imageBatchClient
}

func NewFrameAnnotator(ctx context.Context, log *logger.Logger) (FrameAnnotator, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &frameAnnotator{
		log:    log.With("service", "FrameAnnotator"),
		client: client,
	}, nil
}

func (a *frameAnnotator) Close() error { return a.client.Close() }

func (a *frameAnnotator) AnnotateFrame(ctx context.Context, imageBytes []byte) (*FrameSignals, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}
	frameArea := float64(cfg.Width) * float64(cfg.Height)
	if frameArea <= 0 {
		return nil, fmt.Errorf("frame has zero area (%dx%d)", cfg.Width, cfg.Height)
	}

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: imageBytes},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 5},
			{Type: visionpb.Feature_IMAGE_PROPERTIES},
		},
	}
	batch, err := a.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if batch == nil || len(batch.Responses) == 0 || batch.Responses[0] == nil {
		return nil, fmt.Errorf("vision returned no response for frame")
	}
	resp := batch.Responses[0]
	if resp.Error != nil {
		return nil, fmt.Errorf("annotate frame: %s", resp.Error.Message)
	}

	out := &FrameSignals{FaceCount: len(resp.FaceAnnotations)}
	for _, face := range resp.FaceAnnotations {
		area := polyAreaFrac(face.BoundingPoly, frameArea)
		if area <= out.FaceAreaFrac {
			continue
		}
		out.FaceAreaFrac = area
		out.FaceConf = float64(face.DetectionConfidence)
		out.PanAngle = float64(face.PanAngle)
		out.TiltAngle = float64(face.TiltAngle)
	}
	out.Brightness = dominantBrightness(resp.ImagePropertiesAnnotation)
	return out, nil
}

// polyAreaFrac treats the bounding poly as an axis-aligned box, which is
// what face detection returns.
func polyAreaFrac(poly *visionpb.BoundingPoly, frameArea float64) float64 {
	if poly == nil || len(poly.Vertices) == 0 {
		return 0
	}
	minX, minY := poly.Vertices[0].X, poly.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range poly.Vertices[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	area := float64(maxX-minX) * float64(maxY-minY)
	if area <= 0 {
		return 0
	}
	frac := area / frameArea
	if frac > 1 {
		frac = 1
	}
	return frac
}

// dominantBrightness is the pixel-fraction-weighted luminance of the
// dominant colors, normalized to [0,1].
func dominantBrightness(props *visionpb.ImageProperties) float64 {
	if props == nil || props.DominantColors == nil || len(props.DominantColors.Colors) == 0 {
		return 0
	}
	var weighted, total float64
	for _, c := range props.DominantColors.Colors {
		if c.Color == nil {
			continue
		}
		lum := 0.2126*float64(c.Color.Red) + 0.7152*float64(c.Color.Green) + 0.0722*float64(c.Color.Blue)
		w := float64(c.PixelFraction)
		weighted += lum * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return weighted / total / 255.0
}
