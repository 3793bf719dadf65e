package step

import "strings"

// subjectRules map kind name fragments to display subjects. First match wins,
// so more specific fragments come first.
var subjectRules = []struct {
	fragment string
	subject  string
}{
	{"userinput", "user input"},
	{"keywordsearch", "web search"},
	{"readmefile", "README file"},
	{"citationfile", "CITATION file"},
	{"descriptionfile", "R DESCRIPTION file"},
	{"codemetafile", "CodeMeta file"},
	{"arxiv", "ArXiv page"},
	{"codemetaresponse", "CodeMeta JSON data"},
	{"crossref", "DOI API response"},
	{"bibtex", "BibTeX"},
	{"citentry", "R CITATION format"},
	{"githubrepo", "GitHub repository main page"},
	{"bitbucketrepo", "Bitbucket repository main page"},
	{"githubapi", "GitHub repository API response"},
	{"cran", "R CRAN package webpage"},
	{"pypi", "Python PyPI package webpage"},
	{"webpage", "webpage"},
	{"relation", "cite-as relation header"},
	{"pmid", "PubMed record"},
	{"description", "R DESCRIPTION file"},
}

// SubjectFor returns the human-readable subject for a kind name.
func SubjectFor(name string) string {
	lower := strings.ToLower(name)
	for _, r := range subjectRules {
		if strings.Contains(lower, r.fragment) {
			return r.subject
		}
	}
	return ""
}

// HostFor returns the hosting service a kind reads from, if any.
func HostFor(name string) string {
	lower := strings.ToLower(name)
	for _, host := range []string{"github", "bitbucket", "crossref", "webpage", "cran", "pypi"} {
		if strings.HasPrefix(lower, host) {
			return host
		}
	}
	return ""
}

// ProxyTypeFor returns how a kind's source was reached: via a DOI, an arXiv
// id, or a link. Metadata and file-format kinds have none.
func ProxyTypeFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "metadata"),
		strings.Contains(lower, "codemeta"),
		strings.Contains(lower, "userinput"),
		strings.Contains(lower, "keywordsearch"),
		strings.Contains(lower, "bibtex"),
		strings.Contains(lower, "citentry"):
		return ""
	case strings.Contains(lower, "crossref"):
		return "doi"
	case strings.Contains(lower, "arxiv"):
		return "arXiv ID"
	}
	return "link"
}
