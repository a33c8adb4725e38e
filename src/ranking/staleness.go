package ranking

import (
	"regexp"

	"prbuild-agent/src/provider"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ExtractVersion returns the first D.D.D token of a build number.
func ExtractVersion(number string) (string, bool) {
	v := versionPattern.FindString(number)
	return v, v != ""
}

// ResolveStaleness reports whether result was built against a different
// version than the dependency it declares. Missing data is never stale.
func ResolveStaleness(result, dependency *provider.QueryResult) bool {
	if result == nil || dependency == nil || result.Definition.DependsOn == "" {
		return false
	}

	own, ok := latestNumber(result)
	if !ok {
		return false
	}
	dep, ok := latestNumber(dependency)
	if !ok {
		return false
	}

	ownVersion, ok := ExtractVersion(own)
	if !ok {
		return false
	}
	depVersion, ok := ExtractVersion(dep)
	if !ok {
		return false
	}

	return ownVersion != depVersion
}

func latestNumber(r *provider.QueryResult) (string, bool) {
	if !r.Authorized {
		return "", false
	}
	build, ok := r.Payload.Latest()
	if !ok || build.Number == "" {
		return "", false
	}
	return build.Number, true
}
