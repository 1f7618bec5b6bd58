package resolve

import "fmt"

// Role identifies the chamber a legislator sits in.
type Role string

const (
	RoleMP  Role = "MP"
	RoleMLA Role = "MLA"
)

// Other returns the alternate chamber, used for fallback searches.
func (r Role) Other() Role {
	if r == RoleMP {
		return RoleMLA
	}
	return RoleMP
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMP || r == RoleMLA
}

// MP pages are keyed by parliamentary term; newest first so a sitting member
// resolves on the first attempt.
var lokSabhaTerms = []string{
	"18th-lok-sabha",
	"17th-lok-sabha",
	"16th-lok-sabha",
}

// collisionSuffixes covers the CMS's numeric disambiguation of same-name
// members, tried only in a full search.
var collisionSuffixes = []string{"-0", "-1"}

// CandidateURLs builds the ordered list of profile URLs to try for a name
// under the given role. quick restricts the list to the most likely URLs
// only (newest term, primary slug), for use in fallback searches where the
// remaining time budget is tight.
func CandidateURLs(baseURL string, role Role, name string, quick bool) []string {
	slugs := NameSlugs(name)
	if len(slugs) == 0 {
		return nil
	}
	if quick {
		slugs = slugs[:1]
	}

	var urls []string
	switch role {
	case RoleMP:
		terms := lokSabhaTerms
		if quick {
			terms = terms[:1]
		}
		for _, term := range terms {
			for _, slug := range slugs {
				urls = append(urls, fmt.Sprintf("%s/mptrack/%s/%s", baseURL, term, slug))
			}
		}
		if !quick {
			for _, suffix := range collisionSuffixes {
				urls = append(urls, fmt.Sprintf("%s/mptrack/%s/%s%s", baseURL, lokSabhaTerms[0], slugs[0], suffix))
			}
		}
	case RoleMLA:
		for _, slug := range slugs {
			urls = append(urls, fmt.Sprintf("%s/mlatrack/%s", baseURL, slug))
		}
		if !quick {
			for _, suffix := range collisionSuffixes {
				urls = append(urls, fmt.Sprintf("%s/mlatrack/%s%s", baseURL, slugs[0], suffix))
			}
		}
	}
	return urls
}
