// File: internal/booking/selectors.go
package booking

import (
	"fmt"
	"time"

	"github.com/fengtianyu/courtdash/internal/engine"
)

// The portal is a uni-app build: almost everything clickable is a custom
// element (uni-button, uni-text) with a lone text node, so text and XPath
// locators carry the weight and CSS is reserved for the login inputs.

const (
	prepareTimeout = 5 * time.Second
	courtTimeout   = 1500 * time.Millisecond
	slotTimeout    = time.Second
	confirmTimeout = time.Second
	lockedTimeout  = 2 * time.Second
)

func loginEntryCandidates() []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.Text("校外人员登录"), prepareTimeout),
	}
}

func usernameField() engine.Locator { return engine.Query(`input[type="text"]`) }
func passwordField() engine.Locator { return engine.Query(`input[type="password"]`) }

func loginSubmitCandidates() []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.XPath(`//uni-button[contains(.,"立即登录")]`), prepareTimeout),
	}
}

func venueCandidates(venue string) []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.Text(venue), prepareTimeout),
	}
}

// bookingEntryCandidates opens the reservation page from the venue detail
// view. The bare uni-button fallback matches the portal's single-button
// layout when the label rendering changes.
func bookingEntryCandidates() []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.XPath(`//uni-button[contains(.,"场馆预约")]`), prepareTimeout),
		engine.NewCandidate(engine.Text("场馆预约"), prepareTimeout),
		engine.NewCandidate(engine.Query("uni-button"), prepareTimeout),
	}
}

// dateCandidates targets tomorrow's tab. The 明天 label is the stable form;
// the day-number fallbacks cover the date-grid variant of the page.
func dateCandidates(day int) []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.Text("明天"), prepareTimeout),
		engine.NewCandidate(engine.TextRegex(fmt.Sprintf("-%02d", day)), prepareTimeout),
		engine.NewCandidate(engine.TextRegex(fmt.Sprintf("%02d", day)), prepareTimeout),
	}
}

func courtCandidates(court engine.Resource) []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.XPath(fmt.Sprintf(`//uni-text[contains(.,"%s")]`, court)), courtTimeout),
		engine.NewCandidate(engine.Text(string(court)), courtTimeout),
	}
}

// slotCandidate matches the slot row by its rendered "18:00 - 19:00 ￥xx"
// text. Only priced rows are clickable, so the currency mark filters out
// sold-out entries.
func slotCandidate(slot engine.Slot) engine.Candidate {
	return engine.NewCandidate(
		engine.TextRegex(fmt.Sprintf("%s:00 - %s.*￥", slot.StartHour(), slot.End)),
		slotTimeout)
}

func confirmCandidate() engine.Candidate {
	return engine.NewCandidate(engine.XPath(`//uni-button[contains(.,"确定")]`), confirmTimeout)
}

// lockedMarker is the submit button appearing: proof the confirm held and
// the slot is reserved in this session.
func lockedMarker() engine.Candidate {
	return engine.NewCandidate(engine.XPath(`//uni-button[contains(.,"提交订单")]`), lockedTimeout)
}

func submitCandidates() []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.XPath(`//uni-button[contains(.,"提交订单")]`), prepareTimeout),
	}
}

func followUpCandidates() []engine.Candidate {
	return []engine.Candidate{
		engine.NewCandidate(engine.Text("去支付"), prepareTimeout),
	}
}

// searchSteps assembles the per-combination step set for tomorrow's date.
func searchSteps(tomorrowDay int) engine.Steps {
	return engine.Steps{
		SelectDate:     dateCandidates(tomorrowDay),
		SelectResource: courtCandidates,
		SelectSlot:     slotCandidate,
		Confirm:        confirmCandidate(),
		LockedMarker:   lockedMarker(),
		Submit:         submitCandidates(),
		FollowUp:       followUpCandidates(),
	}
}
