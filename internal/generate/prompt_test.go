package generate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{Query: "fintech startups in Accra", BatchSize: 5, BatchIndex: 2}, 0)
	assert.Contains(t, p, `for 5 companies matching: "fintech startups in Accra"`)
	assert.Contains(t, p, "Batch #3.")
	assert.NotContains(t, p, "Do NOT include")
	assert.Contains(t, p, `"management"`)
}

func TestBuildPrompt_ExcludeCap(t *testing.T) {
	var names []string
	for i := range 60 {
		names = append(names, fmt.Sprintf("Co%02d", i))
	}
	p := BuildPrompt(Request{Query: "q", BatchSize: 5, Exclude: names}, 50)

	assert.Contains(t, p, "Do NOT include these companies: Co10, Co11")
	assert.Contains(t, p, "Co59.")
	assert.NotContains(t, p, "Co09")

	p = BuildPrompt(Request{Query: "q", BatchSize: 5, Exclude: names}, 3)
	assert.Contains(t, p, "Do NOT include these companies: Co57, Co58, Co59.")
}
