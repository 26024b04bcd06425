// Package safechat implements the rules-constrained safety assistant:
// emergency-contact lookup, age-banded prompt selection, and the dispatch
// pipeline that routes a user message either to the deterministic contact
// formatter or to the generative model.
package safechat

import (
	"sort"
	"strings"
)

const InternationalKey = "international"

type CountryRecord struct {
	CanonicalName     string
	Aliases           []string
	Emergency         string
	Police            string
	Fire              string
	Ambulance         string
	ChildHelpline     string
	SuicidePrevention string
	DomesticViolence  string
	GenderViolence    string
	WomensHelpline    string
	Description       string
}

type aliasEntry struct {
	alias string
	key   string
}

// ContactDirectory is built once at startup and is read-only afterwards, so it
// is safe for concurrent lookups.
type ContactDirectory struct {
	records map[string]CountryRecord
	aliases []aliasEntry
}

func NewContactDirectory() *ContactDirectory {
	records := make(map[string]CountryRecord, len(defaultCountryRecords))
	aliases := make([]aliasEntry, 0, len(defaultCountryRecords)*3)
	for _, record := range defaultCountryRecords {
		key := strings.ToLower(strings.TrimSpace(record.CanonicalName))
		records[key] = record
		if key != InternationalKey {
			aliases = append(aliases, aliasEntry{alias: key, key: key})
		}
		for _, alias := range record.Aliases {
			normalized := strings.ToLower(strings.TrimSpace(alias))
			if normalized == "" {
				continue
			}
			aliases = append(aliases, aliasEntry{alias: normalized, key: key})
		}
	}

	// Longest alias first so "united states" beats "united" style partial
	// overlaps; ties break alphabetically to keep iteration deterministic.
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i].alias) != len(aliases[j].alias) {
			return len(aliases[i].alias) > len(aliases[j].alias)
		}
		return aliases[i].alias < aliases[j].alias
	})

	return &ContactDirectory{records: records, aliases: aliases}
}

// Lookup never fails: unknown keys fall back to the international record.
func (d *ContactDirectory) Lookup(key string) CountryRecord {
	record, ok := d.records[strings.ToLower(strings.TrimSpace(key))]
	if ok {
		return record
	}
	return d.records[InternationalKey]
}

func (d *ContactDirectory) FormatContacts(key string, explicitCountryFound bool) string {
	record := d.Lookup(key)

	lines := []string{
		record.Description,
		"",
		"General Emergency: " + record.Emergency,
		"Police: " + record.Police,
		"Fire: " + record.Fire,
		"Ambulance: " + record.Ambulance,
	}
	optional := []struct {
		label string
		value string
	}{
		{label: "Child Helpline", value: record.ChildHelpline},
		{label: "Suicide Prevention", value: record.SuicidePrevention},
		{label: "Domestic Violence Helpline", value: record.DomesticViolence},
		{label: "Gender-Based Violence Helpline", value: record.GenderViolence},
		{label: "Women's Helpline", value: record.WomensHelpline},
	}
	for _, item := range optional {
		if strings.TrimSpace(item.value) != "" {
			lines = append(lines, item.label+": "+item.value)
		}
	}

	lines = append(lines,
		"",
		"If you are in danger right now, call the emergency number first and tell a trusted adult where you are.",
	)
	if explicitCountryFound {
		lines = append(lines,
			"These contacts are for "+record.CanonicalName+". You can ask me about any other country's emergency numbers the same way.",
		)
	} else {
		lines = append(lines,
			"I couldn't identify a specific country, so these are general contacts. Tell me which country you are in and I can share its exact numbers.",
		)
	}
	return strings.Join(lines, "\n")
}

var defaultCountryRecords = []CountryRecord{
	{
		CanonicalName: "International",
		Emergency:     "112",
		Police:        "112 or 911",
		Fire:          "112 or 911",
		Ambulance:     "112 or 911",
		ChildHelpline: "116 111 (Child Helpline International network, where available)",
		Description:   "International emergency contacts",
	},
	{
		CanonicalName:     "United States",
		Aliases:           []string{"america", "usa", "united states of america", "u.s.", "u.s.a."},
		Emergency:         "911",
		Police:            "911",
		Fire:              "911",
		Ambulance:         "911",
		ChildHelpline:     "1-800-422-4453 (Childhelp)",
		SuicidePrevention: "988",
		DomesticViolence:  "1-800-799-7233",
		Description:       "Emergency contacts for the United States",
	},
	{
		CanonicalName:     "United Kingdom",
		Aliases:           []string{"britain", "england", "scotland", "wales", "great britain"},
		Emergency:         "999",
		Police:            "999",
		Fire:              "999",
		Ambulance:         "999",
		ChildHelpline:     "0800 1111 (Childline)",
		SuicidePrevention: "116 123 (Samaritans)",
		DomesticViolence:  "0808 2000 247",
		Description:       "Emergency contacts for the United Kingdom",
	},
	{
		CanonicalName:     "Canada",
		Emergency:         "911",
		Police:            "911",
		Fire:              "911",
		Ambulance:         "911",
		ChildHelpline:     "1-800-668-6868 (Kids Help Phone)",
		SuicidePrevention: "988",
		Description:       "Emergency contacts for Canada",
	},
	{
		CanonicalName:     "Australia",
		Aliases:           []string{"aussie"},
		Emergency:         "000",
		Police:            "000",
		Fire:              "000",
		Ambulance:         "000",
		ChildHelpline:     "1800 55 1800 (Kids Helpline)",
		SuicidePrevention: "13 11 14 (Lifeline)",
		DomesticViolence:  "1800 737 732",
		Description:       "Emergency contacts for Australia",
	},
	{
		CanonicalName:  "India",
		Aliases:        []string{"bharat"},
		Emergency:      "112",
		Police:         "100",
		Fire:           "101",
		Ambulance:      "102",
		ChildHelpline:  "1098 (Childline India)",
		WomensHelpline: "181",
		Description:    "Emergency contacts for India",
	},
	{
		CanonicalName:  "Kenya",
		Emergency:      "999",
		Police:         "999",
		Fire:           "999",
		Ambulance:      "999",
		ChildHelpline:  "116",
		GenderViolence: "1195",
		Description:    "Emergency contacts for Kenya",
	},
	{
		CanonicalName: "Nigeria",
		Emergency:     "112",
		Police:        "112",
		Fire:          "112",
		Ambulance:     "112",
		ChildHelpline: "116",
		Description:   "Emergency contacts for Nigeria",
	},
	{
		CanonicalName:  "South Africa",
		Emergency:      "112",
		Police:         "10111",
		Fire:           "10177",
		Ambulance:      "10177",
		ChildHelpline:  "116 (Childline South Africa)",
		GenderViolence: "0800 428 428",
		Description:    "Emergency contacts for South Africa",
	},
	{
		CanonicalName: "Philippines",
		Emergency:     "911",
		Police:        "911",
		Fire:          "911",
		Ambulance:     "911",
		ChildHelpline: "1383 (Bantay Bata)",
		Description:   "Emergency contacts for the Philippines",
	},
	{
		CanonicalName: "Germany",
		Aliases:       []string{"deutschland"},
		Emergency:     "112",
		Police:        "110",
		Fire:          "112",
		Ambulance:     "112",
		ChildHelpline: "116 111",
		Description:   "Emergency contacts for Germany",
	},
	{
		CanonicalName: "France",
		Emergency:     "112",
		Police:        "17",
		Fire:          "18",
		Ambulance:     "15",
		ChildHelpline: "119",
		Description:   "Emergency contacts for France",
	},
	{
		CanonicalName: "Japan",
		Aliases:       []string{"nippon"},
		Emergency:     "110",
		Police:        "110",
		Fire:          "119",
		Ambulance:     "119",
		ChildHelpline: "189",
		Description:   "Emergency contacts for Japan",
	},
	{
		CanonicalName:  "Brazil",
		Aliases:        []string{"brasil"},
		Emergency:      "190",
		Police:         "190",
		Fire:           "193",
		Ambulance:      "192",
		ChildHelpline:  "100",
		WomensHelpline: "180",
		Description:    "Emergency contacts for Brazil",
	},
	{
		CanonicalName: "Pakistan",
		Emergency:     "1122",
		Police:        "15",
		Fire:          "16",
		Ambulance:     "1122",
		ChildHelpline: "1121 (Madadgaar)",
		Description:   "Emergency contacts for Pakistan",
	},
	{
		CanonicalName: "Bangladesh",
		Emergency:     "999",
		Police:        "999",
		Fire:          "999",
		Ambulance:     "999",
		ChildHelpline: "1098",
		Description:   "Emergency contacts for Bangladesh",
	},
	{
		CanonicalName: "United Arab Emirates",
		Aliases:       []string{"uae", "emirates", "dubai", "abu dhabi"},
		Emergency:     "999",
		Police:        "999",
		Fire:          "997",
		Ambulance:     "998",
		ChildHelpline: "116111",
		Description:   "Emergency contacts for the United Arab Emirates",
	},
}
