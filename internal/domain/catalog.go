package domain

// OpeningPrice is the price every instrument starts the session at. It is
// also the par value a sell settlement resets to when it would otherwise
// drive the price negative.
const OpeningPrice = 100.0

// Catalog returns the static seed basket of instruments. Prices and
// directions are reset to their opening state on every call, so each
// exchange run starts from the same book.
func Catalog() []Instrument {
	seed := []struct {
		symbol     string
		name       string
		volatility float64
	}{
		{"HONGSENG", "Hong Seng Consolidated Bhd", 0.3},
		{"LAMBO", "Lambo Group Bhd", 0.33},
		{"MMAG", "MMAG Holdings Bhd", 0.17},
		{"MYEG", "My E.G. Services Berhad", 0.02},
		{"NETX", "NetX Holdings Bhd", 0.45},
		{"ASDION", "Asdion Bhd", 0.16},
		{"CTOS", "CTOS Digital Bhd", 0.5},
		{"CLOUDPT", "Cloudpoint Technology Bhd", 0.6},
		{"EDUSPEC", "Eduspec Holdings Bhd", 0.53},
		{"HTPADU", "HeiTech Padu Bhd", 0.53},
		{"SSB8", "Southern Score Builders Berhad", 0.9},
		{"BPURI", "Bina Puri Holdings Bhd", 0.7},
		{"SENDAI", "Eversendai Corporation Bhd", 0.6},
		{"TCS", "TCS Group Holdings Bhd", 0.28},
		{"JTGROUP", "Jati Tinggi Group Bhd", 0.52},
		{"WIDAD", "Widad Group Bhd", 0.27},
		{"GAMUDA", "Gamuda Bhd", 0.3},
		{"PETGAS", "Petronas Gas Bhd", 0.3},
		{"MUHIBAH", "Muhibbah Engineering (M) Bhd", 0.5},
		{"ECONBHD", "Econpile Holdings Bhd", 0.4},
		{"TOPGLOV", "Top Glove Corporation Bhd", 0.4},
		{"PBBANK", "Public Bank Berhad", 0.5},
		{"CIMB", "CIMB Group Holdings Bhd", 0.4},
		{"M&A", "M & A Equity Holdings Bhd", 0.7},
		{"EMCC", "Evergreen Max Cash Capital Bhd", 0.6},
		{"KENANGA", "Kenanga Investment Bank Bhd", 0.8},
		{"MBSB", "Malaysia Building Society Bhd", 0.7},
		{"AMBANK", "AMMB Holdings Berhad", 0.6},
		{"RHBBANK", "RHB Bank Bhd", 0.7},
		{"FINTEC", "Fintec Global Bhd", 0.4},
		{"RCECAP", "RCE Capital Bhd", 0.3},
		{"BIMB", "Bank Islam Malaysia Bhd", 0.3},
		{"INSAS", "Insas Bhd", 0.3},
		{"AFFIN", "Affin Bank Bhd", 0.7},
		{"TUNEPRO", "Tune Protect Group Bhd", 0.5},
		{"NESTLE", "Nestle (Malaysia) Berhad", 0.5},
		{"MERSEC", "Mercury Securities Group Bhd", 0.2},
		{"HLBANK", "Hong Leong Bank Bhd", 0.45},
		{"ABMB", "Alliance Bank Malaysia Bhd", 0.7},
		{"MAA", "MAA Group Bhd", 0.33},
		{"VELESTO", "Velesto Energy Bhd", 0.33},
		{"DIALOG", "Dialog Group Bhd", 0.79},
		{"ARMADA", "Bumi Armada Bhd", 0.54},
		{"ICON", "Icon Offshore Bhd", 0.73},
		{"YINSON", "Yinson Holdings Berhad", 0.2},
		{"PERDANA", "Perdana Petroleum Bhd", 0.8},
		{"SAPNRG", "Sapura Energy Bhd", 0.57},
		{"RL", "Reservoir Link Energy Bhd", 0.63},
		{"T7GLOBAL", "T7 Global Bhd", 0.75},
		{"DAYANG", "Dayang Enterprise Holdings Berhad", 0.7},
		{"SPSETIA", "S P Setia Bhd", 0.8},
		{"IWCITY", "Iskandar Waterfront City Bhd", 0.8},
		{"NCT", "NCT Alliance Bhd", 0.8},
		{"E&O", "Eastern & Oriental Bhd", 0.85},
		{"TANCO", "Tanco Holdings Bhd", 0.82},
		{"JIANKUN", "Jiankun International Bhd", 0.25},
		{"SIMEPROP", "Sime Darby Property Bhd", 0.88},
		{"MAHSING", "Mah Sing Group Bhd", 0.8},
		{"ECOWLD", "Eco World Development Group Bhd", 0.75},
		{"IOIPG", "IOI Properties Group Bhd", 0.56},
	}

	instruments := make([]Instrument, 0, len(seed))
	for _, s := range seed {
		instruments = append(instruments, Instrument{
			Symbol:     s.symbol,
			Name:       s.name,
			Price:      OpeningPrice,
			Direction:  DirectionUnknown,
			Volatility: s.volatility,
		})
	}
	return instruments
}

// CatalogSymbols returns just the symbols of the seed basket, in catalog
// order. Clients draw from this list when generating preferences.
func CatalogSymbols() []string {
	instruments := Catalog()
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	return symbols
}
