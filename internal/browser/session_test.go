// File: internal/browser/session_test.go
package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fengtianyu/courtdash/internal/config"
	"github.com/fengtianyu/courtdash/internal/engine"
)

func TestToQueryMapping(t *testing.T) {
	sel, _ := toQuery(engine.Query("input[type=password]"))
	assert.Equal(t, "input[type=password]", sel)

	sel, _ = toQuery(engine.XPath(`//uni-button[contains(.,"确定")]`))
	assert.Equal(t, `//uni-button[contains(.,"确定")]`, sel)

	sel, _ = toQuery(engine.Text("明天"))
	assert.Equal(t, `//*[normalize-space(text())="明天"]`, sel)
}

func TestXPathLiteralQuoting(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	// Mixed quotes force the concat form.
	assert.Equal(t, `concat("it's ",'"',"quoted",'"',"")`, xpathLiteral(`it's "quoted"`))
}

func TestJSLiteralEscapes(t *testing.T) {
	assert.Equal(t, `"18:00 - 19:00.*￥"`, jsLiteral("18:00 - 19:00.*￥"))
	assert.Equal(t, `"a\"b"`, jsLiteral(`a"b`))
}

func TestRegexFuncsEmbedPattern(t *testing.T) {
	pat := `\d+:\d+`
	for _, src := range []string{regexProbeFunc(pat), regexClickExpr(pat), findTextFunc(pat)} {
		assert.Contains(t, src, `new RegExp("\\d+:\\d+")`)
	}
	assert.True(t, strings.HasPrefix(regexProbeFunc(pat), "function()"),
		"poll predicates must be function literals")
}

func TestExecOptionsParsesArgs(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		Args:            []string{"no-zygote", "--lang=zh-CN", "window-size=390,844"},
	}
	base := execOptions(config.BrowserConfig{Headless: true, IgnoreTLSErrors: true})
	withArgs := execOptions(cfg)
	assert.Len(t, withArgs, len(base)+3, "each arg contributes exactly one flag")
}

func TestExecOptionsHeadfulOverridesDefault(t *testing.T) {
	headless := execOptions(config.BrowserConfig{Headless: true})
	headful := execOptions(config.BrowserConfig{Headless: false})
	// The chromedp defaults are headless; headful mode needs an extra flag
	// to switch that off.
	assert.Len(t, headful, len(headless)+1)
}
