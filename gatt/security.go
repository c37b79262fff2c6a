package gatt

// Level rates the protection of a service or a whole device.
type Level int

const (
	LevelUnknown Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	case LevelLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

func (l Level) Description() string {
	switch l {
	case LevelHigh:
		return "Good security"
	case LevelMedium:
		return "Some concerns"
	case LevelLow:
		return "Security issues found"
	default:
		return "Unable to determine"
	}
}

// Severity grades a finding.
type Severity int

const (
	SeverityMedium Severity = iota + 1
	SeverityHigh
)

func (s Severity) String() string {
	if s == SeverityHigh {
		return "HIGH"
	}
	return "MEDIUM"
}

const (
	IssueUnencryptedWrite = "Writable without encryption"
	IssueNotifyNoMITM     = "Notifications without MITM protection"
)

// Finding is one weakness found on a characteristic.
type Finding struct {
	Severity       Severity
	Characteristic string
	Issue          string
	Recommendation string
}

// Report is the assessment of a whole attribute table.
type Report struct {
	Overall         Level
	Services        int
	Characteristics int
	Findings        []Finding
}

// ServiceLevel rates one service. The first true condition wins: any MITM permission,
// then any encrypted permission, then any writable characteristic without permissions.
func ServiceLevel(chars []Characteristic) Level {
	var mitm, encrypted, openWrite bool
	for _, c := range chars {
		mitm = mitm || c.Permissions.Has(PermMITM)
		encrypted = encrypted || c.Permissions.Has(PermEncrypted)
		openWrite = openWrite || (c.Writable() && c.Permissions == 0)
	}
	switch {
	case mitm:
		return LevelHigh
	case encrypted:
		return LevelMedium
	case openWrite:
		return LevelLow
	default:
		return LevelUnknown
	}
}

// Assess lists the findings of every characteristic and derives the device level.
// A table with no findings, including an empty one, rates HIGH.
func Assess(services []Service) Report {
	rep := Report{Services: len(services), Findings: []Finding{}}
	for _, s := range services {
		rep.Characteristics += len(s.Characteristics)
		for _, c := range s.Characteristics {
			if c.Writable() && !c.Permissions.Has(PermEncrypted) {
				rep.Findings = append(rep.Findings, Finding{
					Severity:       SeverityHigh,
					Characteristic: c.Name,
					Issue:          IssueUnencryptedWrite,
					Recommendation: "Consider requiring encrypted writes",
				})
			}
			if c.Notifies() && !c.Permissions.Has(PermMITM) {
				rep.Findings = append(rep.Findings, Finding{
					Severity:       SeverityMedium,
					Characteristic: c.Name,
					Issue:          IssueNotifyNoMITM,
					Recommendation: "Enable MITM protection for sensitive data",
				})
			}
		}
	}
	rep.Overall = overall(rep.Findings)
	return rep
}

func overall(findings []Finding) Level {
	var high, medium bool
	for _, f := range findings {
		high = high || f.Severity == SeverityHigh
		medium = medium || f.Severity == SeverityMedium
	}
	switch {
	case high:
		return LevelLow
	case medium:
		return LevelMedium
	case len(findings) == 0:
		return LevelHigh
	default:
		return LevelUnknown
	}
}
