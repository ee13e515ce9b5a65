// Package diagram renders the compiled pipeline graph as a Mermaid
// flowchart and saves it as source text or as an image.
package diagram
