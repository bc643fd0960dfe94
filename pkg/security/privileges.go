package security

import (
	"errors"
	"os"
	"os/user"
	"runtime"
)

// ErrElevated - процесс запущен с правами root/Administrator
var ErrElevated = errors.New("process runs with elevated privileges; use a dedicated service account")

// IsAdmin проверяет, запущена ли программа с административными правами.
// Unix: effective UID == 0. Windows: доступ к защищенному устройству.
func IsAdmin() bool {
	if runtime.GOOS == "windows" {
		return isWindowsAdmin()
	}
	return os.Geteuid() == 0
}

// isWindowsAdmin - только администратор может открыть \\.\PHYSICALDRIVE0
func isWindowsAdmin() bool {
	file, err := os.Open("\\\\.\\PHYSICALDRIVE0")
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// CheckPrivileges возвращает ErrElevated, если процесс запущен с
// повышенными правами и allowElevated == false.
// Сервер дашборда хранит пароль в памяти и не должен работать от root.
func CheckPrivileges(allowElevated bool) error {
	if allowElevated || !IsAdmin() {
		return nil
	}
	return ErrElevated
}

// GetCurrentUser возвращает имя текущего пользователя ОС для журнала аудита
func GetCurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}
