package main

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"shelldeck/internal/sched"
	"shelldeck/internal/store"
	"shelldeck/internal/term"
)

func main() {
	log.Printf("Starting ShellDeck on %s", runtime.GOOS)

	settings := GetSettings().Get()

	myApp := app.New()
	myApp.Settings().SetTheme(NewNativeTheme(settings.DarkMode))

	myWindow := myApp.NewWindow("ShellDeck")
	myWindow.Resize(fyne.NewSize(settings.WindowWidth, settings.WindowHeight))

	st, err := store.Open(GetDatabasePath())
	if err != nil {
		log.Fatalf("Could not open host database: %v", err)
	}

	loop := sched.NewLoop(fyne.Do)

	manager := NewHostManager(myWindow, loop, st)
	myWindow.SetContent(manager.GetContainer())

	GetSettings().OnChange(func(s AppSettings) {
		myApp.Settings().SetTheme(NewNativeTheme(s.DarkMode))
		manager.ApplyTheme(term.Theme{Dark: s.DarkMode, FontSize: s.FontSize})
	})

	shutdown := func() {
		current := GetSettings().Get()
		size := myWindow.Canvas().Size()
		current.WindowWidth = size.Width
		current.WindowHeight = size.Height
		GetSettings().Update(current)

		manager.DisconnectAll()
		st.Close()
		time.AfterFunc(100*time.Millisecond, myApp.Quit)
	}

	myWindow.SetCloseIntercept(func() {
		activeCount := manager.ActiveSessionCount()
		if activeCount == 0 || !GetSettings().Get().ConfirmOnClose {
			shutdown()
			return
		}

		dialog.ShowConfirm(
			"Close ShellDeck",
			fmt.Sprintf("You have %d active session(s).\n\nClose anyway?", activeCount),
			func(confirmed bool) {
				if confirmed {
					shutdown()
				}
			},
			myWindow,
		)
	})

	myWindow.ShowAndRun()
}
