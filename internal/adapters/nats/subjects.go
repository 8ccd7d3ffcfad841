package natsadapter

import "encoding/base32"

const (
	// MapConfigStream holds every map config event.
	MapConfigStream = "MAP_CONFIGS"

	subjectPrefix = "plotmap.mapconfig"
)

// MapConfigSubject is the subject for one event on one project.
func MapConfigSubject(eventType, projectID string) string {
	return subjectPrefix + "." + eventType + "." + token(projectID)
}

// MapConfigFilter matches every event type for projectID, or every project
// when projectID is empty.
func MapConfigFilter(projectID string) string {
	if projectID == "" {
		return subjectPrefix + ".>"
	}
	return subjectPrefix + ".*." + token(projectID)
}

var tokenEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// token makes an ID safe to use as a single subject token. IDs made only
// of letters, digits and hyphens pass through; anything else is base32
// encoded behind a "_" marker, which plain IDs never contain, so distinct
// IDs never share a subject.
func token(id string) string {
	if id != "" && plainToken(id) {
		return id
	}
	return "_" + tokenEncoding.EncodeToString([]byte(id))
}

func plainToken(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}
