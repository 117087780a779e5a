package weather

// WMO weather interpretation codes as used by Open-Meteo.
var codeDescriptions = map[int]string{
	0:  "☀️ Clear sky",
	1:  "\U0001f324️ Mainly clear",
	2:  "⛅ Partly cloudy",
	3:  "☁️ Overcast",
	45: "\U0001f32b️ Fog",
	48: "\U0001f32b️ Depositing rime fog",
	51: "\U0001f327️ Light drizzle",
	53: "\U0001f327️ Moderate drizzle",
	55: "\U0001f327️ Dense drizzle",
	61: "\U0001f327️ Slight rain",
	63: "\U0001f327️ Moderate rain",
	65: "\U0001f327️ Heavy rain",
	71: "\U0001f328️ Slight snow fall",
	73: "\U0001f328️ Moderate snow fall",
	75: "\U0001f328️ Heavy snow fall",
	80: "\U0001f326️ Slight rain showers",
	81: "\U0001f326️ Moderate rain showers",
	82: "\U0001f326️ Violent rain showers",
	95: "⛈️ Thunderstorm",
}

// DescribeCode maps a WMO weather code to a display description.
func DescribeCode(code int) string {
	if d, ok := codeDescriptions[code]; ok {
		return d
	}
	return "❓ Unknown condition"
}
