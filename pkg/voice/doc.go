// Package voice puts speech recognition and speech synthesis behind one
// bridge with a uniform error contract.
//
// The bridge owns the per-stage timeouts. Whatever the provider, a failed
// transcription surfaces as ErrTranscriptionFailed or ErrTranscriptionTimeout
// and a failed synthesis as ErrSynthesisFailed or ErrSynthesisTimeout, each
// wrapping the provider error:
//
//	bridge, _ := voice.New(recognizer, synthesizer,
//	    voice.WithTranscriptionTimeout(15*time.Second),
//	)
//	text, err := bridge.Transcribe(ctx, audio, "fr")
//	if errors.Is(err, voice.ErrTranscriptionFailed) {
//	    // ask the user to repeat
//	}
//
// Timer measures stage latencies for one pipeline cycle and Collector keeps a
// rolling average over recent cycles.
package voice
