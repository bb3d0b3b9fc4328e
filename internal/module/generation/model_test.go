package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected TaskStatus
	}{
		{"pending", StatusPending},
		{"queued", StatusPending},
		{"processing", StatusProcessing},
		{"running", StatusProcessing},
		{"succeeded", StatusSucceeded},
		{"completed", StatusSucceeded},
		{"failed", StatusFailed},
		{"SUCCEEDED", StatusSucceeded},
		{"  Running  ", StatusProcessing},
		{"", StatusUnknown},
		{"exploded", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseStatus(tt.raw))
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusUnknown.Terminal())
}

func TestTaskStatus_External(t *testing.T) {
	assert.Equal(t, StatusProcessing, StatusPending.External())
	assert.Equal(t, StatusProcessing, StatusUnknown.External())
	assert.Equal(t, StatusProcessing, StatusProcessing.External())
	assert.Equal(t, StatusSucceeded, StatusSucceeded.External())
	assert.Equal(t, StatusFailed, StatusFailed.External())
}

func TestRequest_Normalize(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		req := &Request{Seed: -1, Temperature: -1}
		req.Normalize()

		assert.Equal(t, "1092x1080", req.AspectRatio)
		assert.Equal(t, 5, req.DurationSeconds)
		assert.Equal(t, 24, req.FrameRate)
	})

	t.Run("clamps out-of-range values", func(t *testing.T) {
		req := &Request{
			DurationSeconds: 100,
			FrameRate:       500,
			Seed:            -7,
			Temperature:     3.5,
		}
		req.Normalize()

		assert.Equal(t, 30, req.DurationSeconds)
		assert.Equal(t, 60, req.FrameRate)
		assert.Equal(t, -1, req.Seed)
		assert.Equal(t, 1.0, req.Temperature)
	})

	t.Run("keeps valid values", func(t *testing.T) {
		req := &Request{
			AspectRatio:     "1280x720",
			DurationSeconds: 10,
			FrameRate:       30,
			Seed:            42,
			Temperature:     0.5,
		}
		req.Normalize()

		assert.Equal(t, "1280x720", req.AspectRatio)
		assert.Equal(t, 10, req.DurationSeconds)
		assert.Equal(t, 30, req.FrameRate)
		assert.Equal(t, 42, req.Seed)
		assert.Equal(t, 0.5, req.Temperature)
	})
}

func TestRequest_Validate(t *testing.T) {
	t.Run("requires at least one image URL", func(t *testing.T) {
		req := &Request{}
		assert.Error(t, req.Validate())
	})

	t.Run("rejects blank URLs", func(t *testing.T) {
		req := &Request{ReferenceImageURLs: []string{"https://files.example/a.png", "  "}}
		err := req.Validate()
		assert.ErrorContains(t, err, "URL 2")
	})

	t.Run("accepts valid request", func(t *testing.T) {
		req := &Request{ReferenceImageURLs: []string{"https://files.example/a.png"}}
		assert.NoError(t, req.Validate())
	})
}

func TestRequest_PromptText(t *testing.T) {
	t.Run("appends parameter flags", func(t *testing.T) {
		req := &Request{
			Prompt:      "a cat on a skateboard",
			Seed:        -1,
			Temperature: -1,
		}
		req.Normalize()

		assert.Equal(t,
			"a cat on a skateboard --ratio 1092x1080 --dur 5 --fps 24 --wm false",
			req.PromptText())
	})

	t.Run("includes seed and temperature when set", func(t *testing.T) {
		req := &Request{
			Prompt:      "sunset",
			Watermark:   true,
			Seed:        7,
			Temperature: 0.25,
		}
		req.Normalize()

		assert.Equal(t,
			"sunset --ratio 1092x1080 --dur 5 --fps 24 --wm true --seed 7 --t 0.25",
			req.PromptText())
	})

	t.Run("falls back to default prompt", func(t *testing.T) {
		req := &Request{Seed: -1, Temperature: -1}
		req.Normalize()

		assert.Contains(t, req.PromptText(), "Generate a video based on the provided images")
	})

	t.Run("seed zero is a real seed", func(t *testing.T) {
		req := &Request{Prompt: "x", Seed: 0, Temperature: -1}
		req.Normalize()

		assert.Contains(t, req.PromptText(), "--seed 0")
	})
}
