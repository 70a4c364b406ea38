// Package pipeline defines the image-to-image generation capability and its
// concrete backends.
//
// The capability is deliberately narrow: one call takes a prompt, a decoded
// source image, a step count, optional strength and guidance values, and a
// seeded Generator, and returns the generated images. Everything that
// happens inside a backend (model loading, samplers, VAE tiling, offloading)
// is opaque to callers.
//
// # Variants
//
//   - VariantPreview: in-process deterministic transform, no GPU required
//   - VariantA1111: AUTOMATIC1111-compatible /sdapi/v1/img2img endpoint
//   - VariantLocalAI: LocalAI /v1/images/generations with a source file
//   - VariantOpenAI: OpenAI image edit endpoint via go-openai
//
// Each variant reports its Capabilities. Strength and guidance are only
// forwarded when the variant declares support for them:
//
//	p, err := pipeline.New(pipeline.Config{Variant: pipeline.VariantA1111, BaseURL: "http://127.0.0.1:7860"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	res, err := p.Generate(ctx, pipeline.Request{
//	    Prompt:    "a cat",
//	    Image:     src,
//	    Steps:     4,
//	    Strength:  pipeline.Float(0.8),
//	    Generator: pipeline.NewGenerator(1),
//	})
//
// # Error Handling
//
// Backends wrap the sentinel errors of this package (ErrInvalidRequest,
// ErrBackend, ErrEmptyResult, ...) with %w. Use errors.Is to branch on them.
package pipeline
