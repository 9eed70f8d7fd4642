package cmd

import (
	"context"
	"fmt"
)

// Compact rewrites the vault database to reclaim unused disk space
func Compact(_ context.Context) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	if err := st.Compact(); err != nil {
		HandleError(err)
	}
	fmt.Println("Vault compacted")
}
