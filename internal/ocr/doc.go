// Package ocr turns equation images into text.
//
// Every backend implements Recognizer, a single Recognize(ctx, image) call
// that returns the recognized text or an empty string. Four backends are
// provided:
//
//   - Tesseract: the Tesseract OCR engine via gosseract/v2. Suitable for
//     plain text; equation quality depends on the installed language data.
//   - Command: any external program that takes an image path and prints its
//     transcription, such as pix2tex (LaTeX-OCR).
//   - OpenAI: an OpenAI-compatible chat completion endpoint with a vision
//     model, prompted to reply with LaTeX.
//   - Anthropic: the Anthropic Messages API with the same prompt.
//
// New builds the backend named in Options.Backend. RecognizerFunc adapts a
// plain function, which is mostly useful in tests.
//
// # Concurrency
//
// All backends are safe for concurrent use. Tesseract creates one engine per
// call; the vision backends share one HTTP client each and pace requests with
// a rate limiter.
//
// # Error Handling
//
// Errors are returned for:
//   - Unknown backend names (ErrUnknownRecognizer)
//   - A missing external command (ErrCommandNotFound)
//   - A missing API key for a vision backend (ErrMissingAPIKey)
//   - Engine failures, non-zero exit statuses and HTTP errors
package ocr
