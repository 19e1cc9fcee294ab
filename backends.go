package main

import (
	"shelf-vision/internal/backend"
	"shelf-vision/internal/backend/opencv"
	"shelf-vision/internal/backend/tesseract"
	"shelf-vision/internal/config"
)

// newRegistry wires the OpenCV and Tesseract backends. Each loads on first
// use; any that fail to load fall back inside the registry.
func newRegistry(cfg config.Config) *backend.Registry {
	opts := []backend.Option{
		backend.WithDetector(func() (backend.ObjectDetector, error) {
			return opencv.NewDetector(opencv.DetectorOptionsFromConfig(cfg.Detector))
		}),
		backend.WithExtractor(func() (backend.EmbeddingExtractor, error) {
			return opencv.NewEmbedder(opencv.EmbedderOptionsFromConfig(cfg.Classifier))
		}),
	}
	if cfg.Detector.Enhance {
		opts = append(opts, backend.WithEnhancer(func() (backend.Enhancer, error) {
			return opencv.NewEnhancer()
		}))
	}
	if cfg.OCR.Enabled {
		opts = append(opts, backend.WithTextReader(func() (backend.TextReader, error) {
			return tesseract.New(cfg.OCR.Language)
		}))
	}
	return backend.NewRegistry(opts...)
}
