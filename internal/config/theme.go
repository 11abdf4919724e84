package config

const (
	LightTheme string = "light-theme"
	DarkTheme  string = "dark-theme"

	DefaultTheme string = DarkTheme

	LightThemeIcon string = "&#9728;"
	DarkThemeIcon  string = "&#9790;"
)
