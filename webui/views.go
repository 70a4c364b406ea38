package webui

import (
	"fmt"
	"time"

	"img2img/form"
	"img2img/metrics"
	"img2img/studio"
)

// OutputView is the JSON form of the output region. Image bytes are served
// separately under /output/.
type OutputView struct {
	Version   uint64      `json:"version"`
	Kind      string      `json:"kind"`
	Message   string      `json:"message,omitempty"`
	Render    *RenderView `json:"render,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RenderView describes a rendered pair.
type RenderView struct {
	ID             string `json:"id"`
	Seed           int64  `json:"seed"`
	SavedPath      string `json:"saved_path,omitempty"`
	InputTitle     string `json:"input_title"`
	GeneratedTitle string `json:"generated_title"`
	InputURL       string `json:"input_url"`
	GeneratedURL   string `json:"generated_url"`
	FigureURL      string `json:"figure_url"`
}

func newOutputView(c studio.Content) OutputView {
	v := OutputView{
		Version:   c.Version,
		Kind:      string(c.Kind),
		Message:   c.Message,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Render != nil {
		// The version query keeps browsers from showing a cached image after
		// the region is replaced.
		q := fmt.Sprintf("?v=%d", c.Version)
		v.Render = &RenderView{
			ID:             c.Render.ID,
			Seed:           c.Render.Seed,
			SavedPath:      c.Render.SavedPath,
			InputTitle:     studio.InputTitle,
			GeneratedTitle: studio.GeneratedTitle,
			InputURL:       "/output/input.png" + q,
			GeneratedURL:   "/output/generated.png" + q,
			FigureURL:      "/output/figure.png" + q,
		}
	}
	return v
}

// FieldView is the JSON form of a form field.
type FieldView struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Step  float64 `json:"step,omitempty"`
	Value any     `json:"value"`
}

func newFieldViews(fields []form.Field) []FieldView {
	out := make([]FieldView, 0, len(fields))
	for _, f := range fields {
		fv := FieldView{
			Name:  f.Name,
			Label: f.Label,
			Kind:  string(f.Kind),
			Min:   f.Min,
			Max:   f.Max,
			Step:  f.Step,
		}
		switch f.Kind {
		case form.KindInt:
			fv.Value = f.Value.Int
		case form.KindFloat:
			fv.Value = f.Value.Float
		case form.KindBool:
			fv.Value = f.Value.Bool
		default:
			fv.Value = f.Value.Text
		}
		out = append(out, fv)
	}
	return out
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	ID         string     `json:"id"`
	Outcome    string     `json:"outcome"`
	Message    string     `json:"message,omitempty"`
	Seed       int64      `json:"seed"`
	DurationMS int64      `json:"duration_ms"`
	Output     OutputView `json:"output"`
}

func newGenerateResponse(o *studio.Outcome, current studio.Content) GenerateResponse {
	resp := GenerateResponse{
		ID:         o.ID,
		Seed:       o.Seed,
		DurationMS: o.Duration.Milliseconds(),
		Output:     newOutputView(current),
	}
	if o.Failure != nil {
		resp.Outcome = o.Failure.Kind.String()
		resp.Message = o.Failure.Message
	} else {
		resp.Outcome = metrics.OutcomeRendered
	}
	return resp
}
