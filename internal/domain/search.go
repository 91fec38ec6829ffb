package domain

// SearchDomain names a category of searchable entities served by
// demo/search/{domain}s/{page}.
type SearchDomain string

const (
	SearchPatients     SearchDomain = "patient"
	SearchDoctors      SearchDomain = "doctor"
	SearchLocations    SearchDomain = "location"
	SearchOrderSets    SearchDomain = "orderSet"
	SearchMedSets      SearchDomain = "medSet"
	SearchTestPatients SearchDomain = "testPatient"
	SearchTests        SearchDomain = "test"
	SearchProfiles     SearchDomain = "profile"
	SearchResults      SearchDomain = "result"
	SearchTdTests      SearchDomain = "tdTest"
)

var searchDomains = map[SearchDomain]struct{}{
	SearchPatients:     {},
	SearchDoctors:      {},
	SearchLocations:    {},
	SearchOrderSets:    {},
	SearchMedSets:      {},
	SearchTestPatients: {},
	SearchTests:        {},
	SearchProfiles:     {},
	SearchResults:      {},
	SearchTdTests:      {},
}

func ParseSearchDomain(s string) (SearchDomain, error) {
	d := SearchDomain(s)
	if _, ok := searchDomains[d]; !ok {
		return "", ErrUnknownSearchDomain
	}
	return d, nil
}

func SearchDomains() []SearchDomain {
	return []SearchDomain{
		SearchPatients, SearchDoctors, SearchLocations, SearchOrderSets, SearchMedSets,
		SearchTestPatients, SearchTests, SearchProfiles, SearchResults, SearchTdTests,
	}
}
