// Command wallharvest downloads wallpaper collections from gallery sites.
package main

func main() {
	Execute()
}
