// Command taskengine runs dependency-ordered task graphs inside a disposable
// git branch and merges or reverts the branch depending on the outcome.
package main

func main() {
	Execute()
}
