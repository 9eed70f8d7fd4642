package cmd

import (
	"context"
	"fmt"
)

// Profiles lists the profile IDs with stored credentials
func Profiles(_ context.Context) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	profiles, err := st.ListProfiles()
	if err != nil {
		HandleError(err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles. Run 'pinvault init' first.")
		return
	}
	for _, profileID := range profiles {
		fmt.Println(profileID)
	}
}
