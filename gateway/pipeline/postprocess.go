package pipeline

import (
	"time"

	"github.com/relayhq/llmgateway/gateway"
)

// postProcess runs the POSTPROCESS stage (§4.7 final step): nothing in
// SPEC_FULL.md's scope needs response-body rewriting today, so this
// stamps bookkeeping only — it never touches Choices or Usage, since a
// post-processor silently rewriting model output would violate the
// zero-fallback guarantee (§1) just as surely as routing through a
// different provider would.
func postProcess(resp *gateway.Response, retryCount int, stages []stageTiming) *gateway.Response {
	resp.Metadata.RetryCount = retryCount
	resp.Metadata.Timings = make(map[string]time.Duration, len(stages))
	resp.Metadata.ProcessingSteps = make([]string, 0, len(stages))
	for _, s := range stages {
		resp.Metadata.ProcessingSteps = append(resp.Metadata.ProcessingSteps, s.name)
		resp.Metadata.Timings[s.name] = s.duration
	}
	return resp
}
