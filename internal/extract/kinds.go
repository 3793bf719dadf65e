package extract

import (
	"fmt"

	"github.com/matsen/citeas/internal/step"
)

// Kind names.
const (
	KindUserInput     = "UserInput"
	KindKeywordSearch = "KeywordSearch"

	KindCrossrefResponse         = "CrossrefResponse"
	KindCrossrefResponseMetadata = "CrossrefResponseMetadata"
	KindArxivResponse            = "ArxivResponse"
	KindArxivMetadata            = "ArxivMetadata"

	KindGithubRepo                = "GithubRepo"
	KindGithubAPIResponse         = "GithubApiResponse"
	KindGithubAPIResponseMetadata = "GithubApiResponseMetadata"
	KindGithubCodemetaFile        = "GithubCodemetaFile"
	KindGithubCitationFile        = "GithubCitationFile"
	KindGithubReadmeFile          = "GithubReadmeFile"
	KindGithubDescriptionFile     = "GithubDescriptionFile"

	KindBitbucketRepo            = "BitbucketRepo"
	KindBitbucketCodemetaFile    = "BitbucketCodemetaFile"
	KindBitbucketCitationFile    = "BitbucketCitationFile"
	KindBitbucketReadmeFile      = "BitbucketReadmeFile"
	KindBitbucketDescriptionFile = "BitbucketDescriptionFile"

	KindCranLibrary         = "CranLibrary"
	KindCranCitationFile    = "CranCitationFile"
	KindCranDescriptionFile = "CranDescriptionFile"
	KindPypiLibrary         = "PypiLibrary"

	KindWebpage         = "Webpage"
	KindWebpageMetadata = "WebpageMetadata"
	KindRelationHeader  = "RelationHeader"
	KindPMID            = "PMID"

	KindBibtex                   = "Bibtex"
	KindBibtexMetadata           = "BibtexMetadata"
	KindCitentry                 = "Citentry"
	KindCitentryMetadata         = "CitentryMetadata"
	KindCodemetaResponse         = "CodemetaResponse"
	KindCodemetaResponseMetadata = "CodemetaResponseMetadata"
	KindDescriptionMetadata      = "DescriptionMetadata"
)

const (
	webpageIntro = "Software projects often have a project webpage."
	webpageMore  = "This project webpage often includes attribution information like an associated DOI, GitHub repository, and/or project title."
	readmeIntro  = "A README file contains information about other files in a directory or archive of computer software."
	readmeMore   = "README files often contain requests for attribution."
)

func fn(f step.ExtractorFunc) step.Extractor { return f }

// Kinds returns the definition of every step kind. Children are listed in
// the order they are tried.
func (s *Sources) Kinds() []step.Kind {
	return []step.Kind{
		{
			Name: KindUserInput,
			Children: []string{
				KindCrossrefResponse, KindArxivResponse, KindGithubRepo, KindBitbucketRepo,
				KindCranLibrary, KindPypiLibrary, KindWebpage,
			},
			Extractor: fn(passInput),
		},
		{
			Name: KindKeywordSearch,
			Children: []string{
				KindArxivResponse, KindGithubRepo, KindBitbucketRepo,
				KindCranLibrary, KindPypiLibrary, KindWebpage,
			},
			Extractor: fn(passInput),
			Intro:     "Use a web search to find the software citation.",
			More:      webpageMore,
		},
		{
			Name:      KindCrossrefResponse,
			Children:  []string{KindCrossrefResponseMetadata},
			Extractor: fn(s.crossref),
			Links: []step.Link{
				{Title: "What is a DOI?", URL: "https://project-thor.readme.io/docs/what-is-a-doi"},
				{Title: "DOI metadata", URL: "https://project-thor.readme.io/docs/accessing-doi-metadata"},
			},
			Intro: "A Digital Object Identifier (DOI) is a persistent identifier commonly used to uniquely identify scholarly papers, and increasingly used to identify datasets, software, and other research outputs.",
			More:  "A DOI is associated with all information needed to properly attribute it, including authors, title, and date of publication.",
		},
		{Name: KindCrossrefResponseMetadata, Terminal: true, Extractor: fn(passMetadata)},
		{
			Name:      KindArxivResponse,
			Children:  []string{KindArxivMetadata},
			Extractor: fn(s.arxiv),
			Links:     []step.Link{{Title: "What is arXiv?", URL: "https://arxiv.org/help/general"}},
			Intro:     "ArXiv is a website that hosts research articles.",
			More:      "An arXiv paper is associated with all information needed to properly attribute it, including authors, title, and date of publication.",
		},
		{Name: KindArxivMetadata, Terminal: true, Extractor: fn(passMetadata)},
		{
			Name: KindGithubRepo,
			Children: []string{
				KindCrossrefResponse, KindGithubCodemetaFile, KindGithubCitationFile,
				KindGithubReadmeFile, KindGithubDescriptionFile, KindGithubAPIResponse,
			},
			Extractor: fn(s.githubRepo),
			Links:     []step.Link{{Title: "GitHub home page", URL: "http://github.com/"}},
			Intro:     "GitHub is a Web-based software version control repository hosting service.",
			More:      "Attribution information is often included in software source code, which can be inspected for software projects that have posted their code on GitHub.",
		},
		{
			Name:      KindGithubAPIResponse,
			Children:  []string{KindGithubAPIResponseMetadata},
			Extractor: fn(s.githubAPI),
			Links:     []step.Link{{Title: "GITHUB API docs", URL: "https://developer.github.com/v3/repos/#get"}},
			More:      "GitHub's API can be used to find metadata about software projects, like the project's authors, title, and created date.",
		},
		{Name: KindGithubAPIResponseMetadata, Terminal: true, Extractor: fn(githubAPIMetadata)},
		{
			Name:      KindGithubCodemetaFile,
			Children:  []string{KindCrossrefResponse, KindCodemetaResponse},
			Extractor: s.githubFile(githubCodemetaHref, nil),
		},
		{
			Name:      KindGithubCitationFile,
			Children:  []string{KindCrossrefResponse, KindCitentry, KindBibtex},
			Extractor: fn(s.githubCitation),
			Links:     []step.Link{{Title: "Citation File Format (CFF)", URL: "https://citation-file-format.github.io/"}},
			Intro:     "Software repositories sometimes includes a plain text citation file named 'CITATION' or 'CITATION.cff' that includes the author, software title, and other additional information.",
		},
		{
			Name:      KindGithubReadmeFile,
			Children:  []string{KindCrossrefResponse},
			Extractor: s.githubFile(githubReadmeHref, stripDependencies),
			Links:     []step.Link{{Title: "README description", URL: "https://help.github.com/articles/about-readmes/"}},
			Intro:     readmeIntro,
			More:      readmeMore,
		},
		{
			Name:      KindGithubDescriptionFile,
			Children:  []string{KindDescriptionMetadata},
			Extractor: s.githubFile(githubDescriptionHref, nil),
		},
		{
			Name: KindBitbucketRepo,
			Children: []string{
				KindBitbucketCodemetaFile, KindBitbucketCitationFile,
				KindBitbucketReadmeFile, KindBitbucketDescriptionFile,
			},
			Extractor: fn(s.bitbucketRepo),
			Links:     []step.Link{{Title: "Bitbucket home page", URL: "https://bitbucket.com/"}},
			Intro:     "Bitbucket is a web-based software version control repository hosting service.",
			More:      "Attribution information is often included in software source code, which can be inspected for software projects that have posted their code on Bitbucket.",
		},
		{
			Name:      KindBitbucketCodemetaFile,
			Children:  []string{KindCrossrefResponse, KindCodemetaResponse},
			Extractor: s.bitbucketFile(bitbucketCodemetaHref),
		},
		{
			Name:      KindBitbucketCitationFile,
			Children:  []string{KindCrossrefResponse, KindCitentry, KindBibtex},
			Extractor: s.bitbucketFile(bitbucketCitationHref),
		},
		{
			Name:      KindBitbucketReadmeFile,
			Children:  []string{KindCrossrefResponse, KindBibtex},
			Extractor: s.bitbucketFile(bitbucketReadmeHref),
			Links:     []step.Link{{Title: "README description", URL: "https://confluence.atlassian.com/bitbucket/readme-content-221449772.html"}},
			Intro:     readmeIntro,
			More:      readmeMore,
		},
		{
			Name:      KindBitbucketDescriptionFile,
			Children:  []string{KindDescriptionMetadata},
			Extractor: s.bitbucketFile(bitbucketDescriptionHref),
		},
		{
			Name: KindCranLibrary,
			Children: []string{
				KindCranCitationFile, KindCranDescriptionFile, KindGithubRepo, KindBitbucketRepo,
				KindCrossrefResponse, KindPMID, KindBibtex,
			},
			Extractor: fn(s.cran),
			Links:     []step.Link{{Title: "CRAN home page", URL: "https://cran.r-project.org/"}},
			Intro:     "The Comprehensive R Archive Network (CRAN) is a repository of software for the R programming language.",
			More:      "A project's CRAN repository page often lists useful attribution information.",
		},
		{
			Name:      KindCranCitationFile,
			Children:  []string{KindBibtex, KindCrossrefResponse, KindCitentry},
			Extractor: fn(s.cranCitationFile),
			Links: []step.Link{
				{Title: "CITATION file introduction", URL: "https://www.software.ac.uk/blog/2013-09-02-encouraging-citation-software-introducing-citation-files"},
				{Title: "CITATION file specifications for R", URL: "http://r-pkgs.had.co.nz/inst.html#inst-citation"},
			},
			Intro: "Software sometimes includes a plain text file called 'CITATION' that specifies the project's title and authors, particularly software written in R.",
			More:  "The CITATION file can be parsed to extract this attribution information.",
		},
		{
			Name:      KindCranDescriptionFile,
			Children:  []string{KindDescriptionMetadata},
			Extractor: fn(s.cranDescriptionFile),
			Links:     []step.Link{{Title: "R DESCRIPTION file specifications", URL: "http://r-pkgs.had.co.nz/description.html"}},
			Intro:     "Software written in R often includes a source file called 'DESCRIPTION' that specifies the project's title and authors.",
			More:      "The DESCRIPTION file can be parsed to extract this attribution information.",
		},
		{
			Name:      KindPypiLibrary,
			Children:  []string{KindGithubRepo, KindBitbucketRepo, KindCrossrefResponse, KindBibtex},
			Extractor: fn(s.pypi),
			Links:     []step.Link{{Title: "PyPI home page", URL: "https://pypi.python.org/pypi"}},
			Intro:     "The Python Package Index (PyPI) is a repository of software for the Python programming language.",
			More:      "A project's PyPI repository page often lists useful attribution information.",
		},
		{
			Name: KindWebpage,
			Children: []string{
				KindRelationHeader, KindCrossrefResponse, KindPMID, KindArxivResponse,
				KindGithubRepo, KindBitbucketRepo, KindBibtex, KindWebpageMetadata,
			},
			Extractor: fn(s.webpage),
			Intro:     webpageIntro,
			More:      webpageMore,
		},
		{Name: KindWebpageMetadata, Terminal: true, Extractor: fn(webpageMetadata)},
		{
			Name:      KindRelationHeader,
			Children:  []string{KindCrossrefResponse},
			Extractor: fn(s.relationHeader),
			Links:     []step.Link{{Title: "What is a cite-as link relation?", URL: "https://tools.ietf.org/html/rfc8574"}},
			Intro:     "A cite-as link relation header is a special header meant to direct the user to a citation resource.",
		},
		{
			Name:      KindPMID,
			Children:  []string{KindCrossrefResponse, KindArxivResponse, KindGithubRepo, KindBitbucketRepo, KindBibtex},
			Extractor: fn(s.pmid),
			Links:     []step.Link{{Title: "What is a PMID?", URL: "https://en.wikipedia.org/wiki/PubMed#PubMed_identifier"}},
			Intro:     "A PMID (PubMed identifier or PubMed unique identifier) is a unique integer value, starting at 1, assigned to each PubMed record.",
		},
		{
			Name:      KindBibtex,
			Children:  []string{KindBibtexMetadata},
			Extractor: fn(s.bibtex),
			Links:     []step.Link{{Title: "BibTeX examples", URL: "https://verbosus.com/bibtex-style-examples.html"}},
			Intro:     "BibTeX is a format for sharing reference information.",
			More:      "BibTeX evolved from LaTeX and is frequently used in the physics and math communities.",
		},
		{Name: KindBibtexMetadata, Terminal: true, Extractor: fn(bibtexMetadata)},
		{
			Name:      KindCitentry,
			Children:  []string{KindCitentryMetadata},
			Extractor: fn(citentry),
			Links:     []step.Link{{Title: "CitEntry example", URL: "https://github.com/tidyverse/ggplot2/blob/master/inst/CITATION"}},
			Intro:     "CitEntry is a format for sharing reference information in CITATION files.",
			More:      "CITATION files are used often in R.",
		},
		{Name: KindCitentryMetadata, Terminal: true, Extractor: fn(citentryMetadata)},
		{
			Name:      KindCodemetaResponse,
			Children:  []string{KindCodemetaResponseMetadata},
			Extractor: fn(codemeta),
			Links:     []step.Link{{Title: "CodeMeta user guide", URL: "https://codemeta.github.io/user-guide/"}},
			Intro:     "CodeMeta is a new standard for the exchange of software metadata across repositories and organizations.",
			More:      "The CodeMeta standard has many contributors spanning research, education, and engineering domains.",
		},
		{Name: KindCodemetaResponseMetadata, Terminal: true, Extractor: fn(passMetadata)},
		{Name: KindDescriptionMetadata, Terminal: true, Extractor: fn(descriptionMetadata)},
	}
}

// Register adds every kind to reg.
func (s *Sources) Register(reg *step.Registry) error {
	for _, k := range s.Kinds() {
		if err := reg.Register(k); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry builds and validates the full registry.
func NewRegistry(s *Sources) (*step.Registry, error) {
	reg := step.NewRegistry()
	if err := s.Register(reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("step registry: %w", err)
	}
	return reg, nil
}
