package cmake

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/goplus/llpkg/pkgs/buildsys"
)

var (
	// "50% tests passed, 1 tests failed out of 2"
	summaryRe = regexp.MustCompile(`(\d+)% tests passed, (\d+) tests? failed out of (\d+)`)
	// "	  1 - unit_tests (Failed)"
	failedRe = regexp.MustCompile(`^\s*\d+\s+-\s+(.+?)\s+\((.+)\)\s*$`)
)

// parseCTest extracts the test count and the failed tests from ctest
// output.
func parseCTest(out string) *buildsys.TestReport {
	report := &buildsys.TestReport{Output: out}
	inFailed := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if m := summaryRe.FindStringSubmatch(line); m != nil {
			report.Total, _ = strconv.Atoi(m[3])
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "The following tests FAILED:") {
			inFailed = true
			continue
		}
		if inFailed {
			m := failedRe.FindStringSubmatch(line)
			if m == nil {
				inFailed = false
				continue
			}
			report.Failed = append(report.Failed, m[1])
		}
	}
	return report
}
