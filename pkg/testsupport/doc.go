// Package testsupport holds helpers shared by the view and engine tests:
// temporary resource trees and golden-file assertions.
package testsupport
