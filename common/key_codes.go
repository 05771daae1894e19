package common

// Key codes delivered by the viewer window. They match GLFW key codes, which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyR     = 82  // R key (ASCII): restart accumulation
	KeySpace = 32  // Spacebar (ASCII): pause and resume rendering
	KeyEsc   = 256 // Escape key (GLFW): handled by the window itself
)
