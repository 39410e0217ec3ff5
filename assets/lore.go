package assets

// DemoTexts are the overlay texts the terminal player cycles through when no
// text is given on the command line.
var DemoTexts = []string{
	"Every gear turns in perfect synchrony",
	"The lenses were always aimed inward",
	"Star charts cover every surface",
	"It blinked back",
	"The walls breathe",
	"Downward seems like a bad idea",
	"Someone has drawn a smiley face next to it",
	"The ink is still wet",
}
