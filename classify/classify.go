// Package classify turns advertisement data into a device category, a device-class label
// and a manufacturer guess. Everything here is table driven and never fails: missing
// input degrades to Unknown.
package classify

import "strings"

// Major is the major device class field of a classic Class of Device (bits 8-12).
type Major uint32

const (
	MajorMisc          Major = 0x0000
	MajorComputer      Major = 0x0100
	MajorPhone         Major = 0x0200
	MajorNetworking    Major = 0x0300
	MajorAudioVideo    Major = 0x0400
	MajorPeripheral    Major = 0x0500
	MajorImaging       Major = 0x0600
	MajorWearable      Major = 0x0700
	MajorToy           Major = 0x0800
	MajorHealth        Major = 0x0900
	MajorUncategorized Major = 0x1F00

	majorMask = 0x1F00
)

// MajorOf extracts the major device class from a Class of Device value.
func MajorOf(cod uint32) Major {
	return Major(cod & majorMask)
}

var classLabels = map[Major]string{
	MajorMisc:          "Miscellaneous",
	MajorComputer:      "Computer",
	MajorPhone:         "Phone",
	MajorNetworking:    "Network",
	MajorAudioVideo:    "Audio/Video",
	MajorPeripheral:    "Peripheral",
	MajorImaging:       "Imaging",
	MajorWearable:      "Wearable",
	MajorToy:           "Toy",
	MajorHealth:        "Health",
	MajorUncategorized: "Uncategorized",
}

// ClassLabel names the major device class of cod, or "Unknown" when cod is nil.
func ClassLabel(cod *uint32) string {
	if cod == nil {
		return "Unknown"
	}
	if label, ok := classLabels[MajorOf(*cod)]; ok {
		return label
	}
	return "Unknown"
}

// RuleKind says which input a Rule inspects.
type RuleKind int

const (
	ByName RuleKind = iota
	ByService
	ByClass
)

func (k RuleKind) String() string {
	switch k {
	case ByName:
		return "name"
	case ByService:
		return "service"
	case ByClass:
		return "class"
	default:
		return "unknown"
	}
}

// Rule is one row of the decision list. Patterns are lower-case substrings for ByName and
// ByService rules; Major is used by ByClass rules.
type Rule struct {
	Kind     RuleKind
	Patterns []string
	Major    Major
	Result   Type
}

// Input is what a Rule is evaluated against.
type Input struct {
	Name     string
	Services []string
	Class    *uint32
}

// Matches reports whether the rule fires for in. Name and service inputs are expected
// lower-cased; Classify takes care of that.
func (r Rule) Matches(in Input) bool {
	switch r.Kind {
	case ByName:
		if in.Name == "" {
			return false
		}
		for _, p := range r.Patterns {
			if strings.Contains(in.Name, p) {
				return true
			}
		}
	case ByService:
		for _, svc := range in.Services {
			for _, p := range r.Patterns {
				if strings.Contains(svc, p) {
					return true
				}
			}
		}
	case ByClass:
		return in.Class != nil && MajorOf(*in.Class) == r.Major
	}
	return false
}

// DefaultRules is the ordered decision list. Order matters: the first matching row wins,
// so every name row is tried before any service row, and service rows before class rows.
var DefaultRules = []Rule{
	{Kind: ByName, Patterns: []string{"iphone", "android", "phone"}, Result: Phone},
	{Kind: ByName, Patterns: []string{"macbook", "laptop", "pc"}, Result: Computer},
	{Kind: ByName, Patterns: []string{"airpod", "buds", "headphone"}, Result: Headphones},
	{Kind: ByName, Patterns: []string{"watch", "band", "fitbit"}, Result: Wearable},
	{Kind: ByName, Patterns: []string{"speaker", "soundbar", "jbl"}, Result: Speaker},
	{Kind: ByName, Patterns: []string{"mouse", "keyboard"}, Result: Peripheral},
	{Kind: ByName, Patterns: []string{"tv", "roku", "fire"}, Result: TV},
	{Kind: ByName, Patterns: []string{"car", "auto"}, Result: Car},
	{Kind: ByName, Patterns: []string{"lock"}, Result: SmartLock},
	{Kind: ByName, Patterns: []string{"beacon", "tile", "airtag"}, Result: Beacon},

	{Kind: ByService, Patterns: []string{"180d"}, Result: Wearable},   // heart rate
	{Kind: ByService, Patterns: []string{"180f"}, Result: Wearable},   // battery
	{Kind: ByService, Patterns: []string{"1812"}, Result: Peripheral}, // HID
	{Kind: ByService, Patterns: []string{"110b", "110a"}, Result: Headphones},

	{Kind: ByClass, Major: MajorPhone, Result: Phone},
	{Kind: ByClass, Major: MajorComputer, Result: Computer},
	{Kind: ByClass, Major: MajorAudioVideo, Result: Speaker},
	{Kind: ByClass, Major: MajorPeripheral, Result: Peripheral},
	{Kind: ByClass, Major: MajorWearable, Result: Wearable},
}

// Classifier evaluates an ordered rule list.
type Classifier struct {
	rules []Rule
}

// New returns a classifier over rules, or over DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the result of the first matching rule, or Unknown.
func (c *Classifier) Classify(name string, services []string, cod *uint32) Type {
	in := Input{Name: strings.ToLower(name), Class: cod}
	if len(services) > 0 {
		in.Services = make([]string, len(services))
		for i, s := range services {
			in.Services[i] = strings.ToLower(s)
		}
	}
	for _, r := range c.rules {
		if r.Matches(in) {
			return r.Result
		}
	}
	return Unknown
}

var defaultClassifier = New()

// Classify runs the default decision list.
func Classify(name string, services []string, cod *uint32) Type {
	return defaultClassifier.Classify(name, services, cod)
}
