package remote

import "fmt"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "ledmux"

// Topics builds the MQTT topics of one ledmux instance.
//
//	topics := remote.Topics{Prefix: "ledmux"}
//	topics.Color(50) // "ledmux/color/50"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Color carries a JSON color command for priority.
func (t Topics) Color(priority int) string {
	return fmt.Sprintf("%s/color/%d", t.prefix(), priority)
}

func (t Topics) Clear(priority int) string {
	return fmt.Sprintf("%s/clear/%d", t.prefix(), priority)
}

// ClearAll removes all color inputs. A payload of "force" resets every input.
func (t Topics) ClearAll() string {
	return fmt.Sprintf("%s/clearall", t.prefix())
}

func (t Topics) Select(priority int) string {
	return fmt.Sprintf("%s/select/%d", t.prefix(), priority)
}

// AutoSelect takes "true" or "false".
func (t Topics) AutoSelect() string {
	return fmt.Sprintf("%s/autoselect", t.prefix())
}

// Visible is the retained state topic holding the visible priority.
func (t Topics) Visible() string {
	return fmt.Sprintf("%s/state/visible", t.prefix())
}

// Commands returns the subscription patterns for every command topic.
func (t Topics) Commands() []string {
	p := t.prefix()
	return []string{
		fmt.Sprintf("%s/color/+", p),
		fmt.Sprintf("%s/clear/+", p),
		t.ClearAll(),
		fmt.Sprintf("%s/select/+", p),
		t.AutoSelect(),
	}
}
