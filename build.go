// build.go - Pure Presenter license tooling build
// Usage: go run build.go [-target=TARGET]
// Targets: all, service, tools, clean, test, release

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const (
	version = "1.4.0"
	module  = "purepresenter"

	// secretEnv carries the release signing secret into the linker
	secretEnv = "PRESENTER_BUILD_SECRET"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose   bool
	GOOS      string
	Secret    string
	Blacklist string
}

var (
	rootDir string
	distDir string

	// key = directory under cmd/, value = output name without extension
	service = map[string]string{
		"presenter-licensed": "presenter-licensed",
	}
	tools = map[string]string{
		"licensegen": "licensegen",
		"revoke":     "revoke-license",
		"licensectl": "licensectl",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s. Run the build from the repository root.", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	goos := flag.String("goos", runtime.GOOS, "Target operating system")
	blacklist := flag.String("blacklist", "", "Revocation list to ship with a release")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose:   *verbose,
		GOOS:      *goos,
		Secret:    os.Getenv(secretEnv),
		Blacklist: *blacklist,
	}

	switch *target {
	case "all":
		buildAll(ctx)
	case "service":
		buildGroup(service, ctx)
	case "tools":
		buildGroup(tools, ctx)
	case "clean":
		clean()
	case "test":
		runTests(ctx.Verbose)
	case "release":
		buildRelease(ctx)
	default:
		if name, ok := lookup(*target); ok {
			buildExecutable(*target, name, ctx)
			break
		}
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "     Pure Presenter - License Build      " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func lookup(target string) (string, bool) {
	if name, ok := service[target]; ok {
		return name, true
	}
	name, ok := tools[target]
	return name, ok
}

func buildAll(ctx *BuildContext) {
	printInfo("Building all binaries...")
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create %s: %v", distDir, err))
		os.Exit(1)
	}
	buildGroup(service, ctx)
	buildGroup(tools, ctx)
}

func buildGroup(group map[string]string, ctx *BuildContext) {
	dirs := make([]string, 0, len(group))
	for dir := range group {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		buildExecutable(dir, group[dir], ctx)
	}
}

func buildExecutable(dir, name string, ctx *BuildContext) {
	printInfo(fmt.Sprintf("Building %s...", dir))

	if ctx.GOOS == "windows" {
		name += ".exe"
	}
	outputPath := filepath.Join(distDir, name)

	ldflags := "-s -w"
	if ctx.Secret != "" {
		ldflags += fmt.Sprintf(" -X %s/internal/config.DefaultLicenseSecret=%s", module, ctx.Secret)
	}

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/"+dir)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		line := strings.Join(args, " ")
		if ctx.Secret != "" {
			// The secret must not end up in build logs
			line = strings.ReplaceAll(line, ctx.Secret, "***")
		}
		fmt.Printf("Running: go %s\n", line)
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", dir, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", name, float64(info.Size())/1024/1024))
	}
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

// buildRelease builds every binary with the release secret and ships the
// current revocation list next to the service.
func buildRelease(ctx *BuildContext) {
	printInfo("Building release version...")

	if ctx.Secret == "" {
		printWarning(fmt.Sprintf("%s is not set, binaries keep the development secret", secretEnv))
	}

	clean()
	buildAll(ctx)

	if ctx.Blacklist != "" {
		dest := filepath.Join(distDir, "license-blacklist.json")
		if err := copyFile(ctx.Blacklist, dest); err != nil {
			printError(fmt.Sprintf("Failed to copy revocation list: %v", err))
			os.Exit(1)
		}
		printInfo(fmt.Sprintf("Included revocation list %s", ctx.Blacklist))
	}

	content := fmt.Sprintf("Pure Presenter license service v%s\nBuilt: %s\n",
		version, time.Now().Format("2006-01-02 15:04:05"))
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to write VERSION.txt: %v", err))
	}

	printSuccess("Release build completed")
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-goos=OS] [-blacklist=FILE]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all                 Build the service and the admin tools (default)")
	fmt.Println("  service             Build presenter-licensed")
	fmt.Println("  tools               Build licensegen, revoke and licensectl")
	fmt.Println("  <cmd>               Build a single command by directory name")
	fmt.Println("  clean               Remove dist/")
	fmt.Println("  test                Run Go tests")
	fmt.Println("  release             Clean build with " + secretEnv + " linked in")
}
