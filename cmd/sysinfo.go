package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imishinist/scibench/internal/system"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Print host and accelerator information",
	Long:  "Print the host and device metadata that would be recorded for a run on this machine.",
	RunE:  sysinfo,
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
}

func sysinfo(cmd *cobra.Command, args []string) error {
	devices := system.NewDeviceSpecs()
	defer devices.Shutdown()

	info := struct {
		Host   system.HostSpec     `json:"host"`
		GPUs   []system.DeviceSpec `json:"gpus"`
		GPUCnt int                 `json:"gpu_count"`
	}{
		Host:   system.NewHostSpec(),
		GPUs:   devices.Devices(),
		GPUCnt: devices.DeviceCount(),
	}

	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode system info: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
