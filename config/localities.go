package config

import "strings"

// Tier is the coarse desirability classification of a locality.
type Tier string

const (
	Tier1 Tier = "Tier 1"
	Tier2 Tier = "Tier 2"
	Tier3 Tier = "Tier 3"
)

// tier1Localities are the premium Ahmedabad localities.
var tier1Localities = []string{
	"S G Highway", "Satellite", "Bopal", "Prahlad Nagar", "Vastrapur",
	"Bodakdev", "Thaltej", "Ambawadi", "Navrangpura", "C G Road",
	"New CG Road", "Gulbai Tekra", "Paldi", "Ellis Bridge",
}

// tier2Localities are the mid-range localities.
var tier2Localities = []string{
	"Dholera", "Jagatpur", "Chandkheda", "Gota", "Vaishno Devi",
	"Shela", "South Bopal", "Naranpura", "Bavla", "Maninagar",
	"Vejalpur", "Noblenagar", "Ghatlodia", "Motera", "Memnagar",
	"Ranip", "Vastral", "Gurukul", "Nikol", "S P Ring Road",
	"Shilaj", "Vasna", "Chandlodia", "Science City", "Sabarmati",
	"Ghodasar", "Juhapura", "New Ranip", "Narol", "Jivrajpark",
	"Bapunagar", "Tragad", "Nava Wadaj", "Shyamal", "Gokuldham",
	"Sanand", "Vatva", "Ashram road", "Dholka", "Sola",
	"Ghuma", "Jodhpur", "Isanpur", "Shahibaug", "Thaltej Road",
	"Changodar", "Kankaria", "New Maninagar", "Saraspur", "Makarba",
	"Amraiwadi", "Odhav", "Palodia", "Sanand - Nalsarovar Road", "Nehrunagar",
}

// tier3Localities are the budget-friendly localities. Any locality
// absent from all three lists is still treated as Tier 3.
var tier3Localities = []string{
	"Pipali Highway", "Naroda", "Ramdev Nagar", "Sarkhej", "Ambli",
	"Kathwada", "Nirnay Nagar", "Sanathal", "Sughad", "Hathijan",
	"Manipur", "Chanakyapuri", "Shah E Alam Roja", "Nava Naroda", "Khokra",
	"Saijpur Bogha", "Godhavi", "Mahadev Nagar", "Racharda", "Rakanpur",
	"Nasmed", "Jashoda Nagar", "Lambha", "Koteshwar", "Bagodara",
	"Lapkaman", "Anandnagar", "Kubernagar", "Sola Road", "Ognaj",
	"Bhadaj", "Shantipura", "Hansol", "Naroda road", "Narol Road",
	"Moraiya", "Behrampura", "Hatkeshwar", "Kalupur", "Meghani Nagar",
	"Barejadi", "kheda", "Khodiar Nagar", "Bhat", "Asarwa",
	"Chharodi", "Dhandhuka", "Khanpur", "Naroda GIDC", "Raipur",
	"Shahpur", "Thakkarbapa Nagar", "Usmanpura", "132 Feet Ring Road",
	"Sanand-Viramgam Road", "Ahmedabad-Rajkot-Highway", "Aslali", "Ayojan Nagar",
	"Bhadra", "Dani Limbada", "Dariapur", "Dudheshwar", "Girdhar Nagar",
	"Gomtipur", "Jamalpur", "Juna Wadaj", "Kalapinagar", "Keshav Nagar",
	"Khadia", "Khamasa", "Madhupura", "Navjivan", "Raikhad",
	"Rakhial", "Sadar Bazar", "Vatva GIDC", "Viramgam", "Kali",
	"Santej", "Nandej", "Raska", "Laxmanpura", "Bavla Nalsarovar Road",
	"Unali", "Mandal", "D Colony", "Sardar Colony", "Kotarpur",
	"Mirzapur", "Narayan Nagar", "Kolat", "Purshottam Nagar", "Gita Mandir",
	"Sachana", "Vinzol", "Geratpur", "Sarangpur", "Acher",
	"Hebatpur", "Devdholera", "Lilapur", "Mahemdabad", "Vishala",
	"Ashok Vatika",
}

// Localities is the immutable locality→tier table. Build it once at
// startup and pass it to the stages that need it; the stages never
// reach back into package globals.
type Localities struct {
	tiers      map[string]Tier
	normalized map[string]string
	names      []string
}

// NewLocalities builds the locality table from the static tier lists.
func NewLocalities() *Localities {
	l := &Localities{
		tiers:      make(map[string]Tier),
		normalized: make(map[string]string),
	}
	for _, name := range tier1Localities {
		l.add(name, Tier1)
	}
	for _, name := range tier2Localities {
		l.add(name, Tier2)
	}
	for _, name := range tier3Localities {
		l.add(name, Tier3)
	}
	return l
}

func (l *Localities) add(name string, tier Tier) {
	l.tiers[name] = tier
	l.normalized[normalizeLocality(name)] = name
	l.names = append(l.names, name)
}

// TierFor returns the tier of a locality. Localities outside the
// Tier-1/Tier-2 membership lists are Tier 3, including "Unknown".
func (l *Localities) TierFor(locality string) Tier {
	if tier, ok := l.tiers[locality]; ok {
		return tier
	}
	return Tier3
}

// Canonical maps a free-form locality string to its canonical name,
// ignoring case, spaces and hyphens. Unmatched values come back as
// "Unknown".
func (l *Localities) Canonical(locality string) string {
	if _, ok := l.tiers[locality]; ok {
		return locality
	}
	if name, ok := l.normalized[normalizeLocality(locality)]; ok {
		return name
	}
	return "Unknown"
}

// Known reports whether the locality is in the static lists.
func (l *Localities) Known(locality string) bool {
	_, ok := l.tiers[locality]
	return ok
}

// Names returns every known locality name in declaration order.
func (l *Localities) Names() []string {
	names := make([]string, len(l.names))
	copy(names, l.names)
	return names
}

func normalizeLocality(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}
