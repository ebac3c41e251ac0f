package businessflow

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogAudit(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	t.Run("records the client metadata", func(t *testing.T) {
		buf.Reset()

		md := NewClientMetadata("10.0.0.1", "curl/8.4")
		md.SetRequestID("req-42")
		logAudit("lead_assignment_updated", 7, md)

		out := buf.String()
		assert.Contains(t, out, `"event":"audit"`)
		assert.Contains(t, out, `"action":"lead_assignment_updated"`)
		assert.Contains(t, out, `"actor_user_id":7`)
		assert.Contains(t, out, `"ip":"10.0.0.1"`)
		assert.Contains(t, out, `"user_agent":"curl/8.4"`)
		assert.Contains(t, out, `"request_id":"req-42"`)
	})

	t.Run("nil metadata still logs the action", func(t *testing.T) {
		buf.Reset()

		logAudit("auto_assign_rule_deleted", 3, nil)

		out := buf.String()
		assert.Contains(t, out, `"action":"auto_assign_rule_deleted"`)
		assert.Contains(t, out, `"actor_user_id":3`)
		assert.NotContains(t, out, `"ip"`)
	})
}
