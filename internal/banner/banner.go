package banner

import (
	"brokerbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    __               __             __                    __
   / /_  _________  / /_____  _____/ /_  ___  ____  _____/ /_
  / __ \/ ___/ __ \/ //_/ _ \/ ___/ __ \/ _ \/ __ \/ ___/ __ \
 / /_/ / /  / /_/ / ,< /  __/ /  / /_/ /  __/ / / / /__/ / / /
/_.___/_/   \____/_/|_|\___/_/  /_.___/\___/_/ /_/\___/_/ /_/ `

	return "\n" + style.Render(ascii) + "\n"
}
