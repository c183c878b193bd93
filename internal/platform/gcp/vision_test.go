package gcp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/genproto/googleapis/type/color"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type fakeBatchClient struct {
	lastReq *visionpb.BatchAnnotateImagesRequest
	resp    *visionpb.BatchAnnotateImagesResponse
	err     error
}

func (f *fakeBatchClient) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeBatchClient) Close() error { return nil }

func framePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return buf.Bytes()
}

func newTestAnnotator(t *testing.T, fake *fakeBatchClient) *frameAnnotator {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &frameAnnotator{log: log.With("service", "FrameAnnotator"), client: fake}
}

func box(x0, y0, x1, y1 int32) *visionpb.BoundingPoly {
	return &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func TestAnnotateFrameReadsFirstBatchResponse(t *testing.T) {
	fake := &fakeBatchClient{
		resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{
				FaceAnnotations: []*visionpb.FaceAnnotation{
					{BoundingPoly: box(0, 0, 10, 10), DetectionConfidence: 0.4},
					{BoundingPoly: box(0, 0, 50, 50), DetectionConfidence: 0.9, PanAngle: 12, TiltAngle: -3},
				},
				ImagePropertiesAnnotation: &visionpb.ImageProperties{
					DominantColors: &visionpb.DominantColorsAnnotation{
						Colors: []*visionpb.ColorInfo{{
							Color:         &color.Color{Red: 255, Green: 255, Blue: 255},
							PixelFraction: 1,
						}},
					},
				},
			}},
		},
	}
	a := newTestAnnotator(t, fake)

	sig, err := a.AnnotateFrame(context.Background(), framePNG(t, 100, 100))
	if err != nil {
		t.Fatalf("AnnotateFrame: %v", err)
	}
	if fake.lastReq == nil || len(fake.lastReq.Requests) != 1 {
		t.Fatalf("expected a one-request batch, got %+v", fake.lastReq)
	}
	if got := len(fake.lastReq.Requests[0].Features); got != 2 {
		t.Fatalf("features = %d, want face detection and image properties", got)
	}
	if sig.FaceCount != 2 {
		t.Fatalf("face count = %d, want 2", sig.FaceCount)
	}
	// The larger face wins the per-face signals.
	if sig.FaceAreaFrac != 0.25 || sig.FaceConf != 0.9 || sig.PanAngle != 12 || sig.TiltAngle != -3 {
		t.Fatalf("unexpected face signals: %+v", sig)
	}
	if sig.Brightness < 0.99 || sig.Brightness > 1.01 {
		t.Fatalf("brightness = %v, want ~1 for a white frame", sig.Brightness)
	}
}

func TestAnnotateFrameSurfacesResponseError(t *testing.T) {
	fake := &fakeBatchClient{
		resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{
				Error: &status.Status{Message: "quota exceeded"},
			}},
		},
	}
	a := newTestAnnotator(t, fake)
	if _, err := a.AnnotateFrame(context.Background(), framePNG(t, 10, 10)); err == nil {
		t.Fatal("a per-image error must fail the frame")
	}
}

func TestAnnotateFrameRejectsEmptyBatch(t *testing.T) {
	a := newTestAnnotator(t, &fakeBatchClient{resp: &visionpb.BatchAnnotateImagesResponse{}})
	if _, err := a.AnnotateFrame(context.Background(), framePNG(t, 10, 10)); err == nil {
		t.Fatal("an empty batch response must fail the frame")
	}

	a = newTestAnnotator(t, &fakeBatchClient{err: errors.New("rpc unavailable")})
	if _, err := a.AnnotateFrame(context.Background(), framePNG(t, 10, 10)); err == nil {
		t.Fatal("a transport error must fail the frame")
	}
}
