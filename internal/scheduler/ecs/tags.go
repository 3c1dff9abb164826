package ecs

import (
	"regexp"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"
)

// restrictedTagValue matches characters ECS does not accept in tag values.
var restrictedTagValue = regexp.MustCompile(`[^\p{L}\p{N}\s_.:+/=\\@-]`)

func tagMap(tags []types.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return m
}

// SanitizeTagValue strips characters that are not allowed in ECS tag values
// and reports whether anything was removed.
func SanitizeTagValue(v string) (string, bool) {
	clean := restrictedTagValue.ReplaceAllString(v, "")
	return clean, clean != v
}

// checkpointCount returns the desired count saved for serviceARN. A missing,
// empty, negative or non-decimal value counts as no checkpoint.
func checkpointCount(tags map[string]string, serviceARN string) (int32, bool) {
	v, ok := tags[serviceARN]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, false
	}
	return int32(n), true
}

// checkpointTag builds the cluster tag that remembers a service's desired count.
func checkpointTag(log zerolog.Logger, serviceARN string, desired int32) types.Tag {
	return sanitizedTag(log, serviceARN, strconv.FormatInt(int64(desired), 10))
}

// sanitizedTag builds a tag whose value ECS will accept, warning when the
// value had to be changed.
func sanitizedTag(log zerolog.Logger, key, value string) types.Tag {
	clean, changed := SanitizeTagValue(value)
	if changed {
		log.Warn().
			Str("tag", key).
			Str("original", value).
			Str("value", clean).
			Msg("tag value changed because it contained characters that are not allowed in ECS tag values")
	}
	return types.Tag{Key: aws.String(key), Value: aws.String(clean)}
}
